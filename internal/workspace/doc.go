// Package workspace holds the mutable entity storage and its snapshots.
//
// A MutableStorage maps entity IDs to the current immutable entity.Record of
// each entity. Every create or modify commits a new Record stamped with the
// next value of a logical clock; removing an entity retires its ID for good.
//
// Snapshot freezes the current mapping. Snapshots share Records with the
// storage by reference and are never affected by later writes: the storage
// copies its ID table (pointers only) on the first write after a snapshot.
//
// Concurrency model:
//   - A MutableStorage has a single writer and no internal locking.
//   - A Snapshot is immutable and safe for any number of concurrent readers.
package workspace
