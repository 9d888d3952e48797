/*
Package domain contains the core domain models for the intake engine.

It defines the fundamental entities of the slot-filling core, such as
Slots, Candidates, the Booking State, and the compiled Flow. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Slot: one piece of structured booking data plus provenance and
    confidence metadata.
  - Candidate: an unmerged extraction result for one turn.
  - BookingState: the runtime snapshot of a session (slots, current
    step, confirmations).
  - Flow / FlowStep: the compiled, conditionally-gated interview script.
  - Decision: the trace record of one merge outcome.
*/
package domain
