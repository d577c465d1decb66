// Package ir provides the value domain and schema representation shared by
// every other package in wsm.
//
// This package contains type definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Field values are one of String, Int, Bool, Array, Object. No floats, no null.
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding used
//     for hashing and persistence.
//   - EntitySchema is the registration contract produced by the schema compiler
//     and consumed by internal/entity.
package ir
