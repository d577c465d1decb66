// Package harness runs declarative storage scenarios.
//
// A scenario names CUE schema files, a list of storage steps (create,
// modify, remove, snapshot) and a list of assertions over the final
// storage and the snapshots taken along the way. Each run uses a fresh
// storage with a deterministic clock, so traces are reproducible and can be
// compared against golden files:
//
//	go test ./internal/harness -update
//
// Steps refer to entities by alias. A create step binds its alias to the
// new entity; modify steps rebind it to the new version. Errors expected by
// a step are declared by code (MISSING_FIELD, DUPLICATE_IDENTITY,
// STALE_ENTITY, SCHEMA_MISMATCH).
package harness
