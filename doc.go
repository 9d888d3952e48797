/*
Package intake is the slot-filling core of a conversational phone
booking agent. It turns noisy, free-form caller speech into structured
booking data (name, phone, address, time, problem description) across
many turns, and sequences the questions needed to complete a booking.

The engine is pure and synchronous: no I/O, no blocking, one writer
per turn. Extraction is gated by the active interview step, merging
follows a strict precedence policy (immutability, confirmation,
locking, correction, confidence, conflict), and a sanitizer repairs
contaminated state by nullifying invalid values and rewinding the
interview.

	eng := intake.New()
	state := domain.NewBookingState("acme:call-42")
	res := eng.RunStep(ctx, state, "my name is Mark")
	fmt.Println(res.Response.Text)

Persistence, transport, and speech recognition are external concerns
behind the ports in pkg/ports.
*/
package intake
