package intake

// Version is the library version. Overridden at build time via
// -ldflags "-X github.com/aretw0/intake.Version=...".
var Version = "0.1.0-dev"
