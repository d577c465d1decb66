// Package store provides SQLite-backed persistence for workspace snapshots.
//
// A saved snapshot is one row in snapshots plus one row per entity in
// entities. Field values are stored as RFC 8785 canonical JSON together
// with a content hash computed by ir.RecordHash, so a row can be checked
// for corruption before it is decoded.
//
// Loading decodes every row through entity.Decode against the descriptors
// registered now, not the ones the data was written with. Stored values are
// kept when they still fit the field, missing fields take the current
// default, and removed fields are dropped.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All queries order by seq or entity_id so results are deterministic.
package store
