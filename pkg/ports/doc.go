/*
Package ports defines the driven ports (interfaces) for the intake engine.

These interfaces decouple the slot-filling core from external
implementations, allowing the host to plug in storage backends and
distributed coordination.

# Key Interfaces

  - StateStore: persisting and loading per-call booking state.
  - DistributedLocker: distributed locking for concurrent session access.
*/
package ports
