// Package cache implements the get-or-compute result cache used by the
// statistics services.
//
// Keys are deterministic fingerprints of canonicalized filter sets, so the
// same filters hash identically regardless of map iteration order. A
// per-key single-flight guard ensures that concurrent misses on one
// fingerprint run exactly one computation; the other callers wait for its
// result instead of stampeding the repository.
//
// The backing store is Redis in production and miniredis in tests. Backend
// read/write failures degrade to recomputation and are logged; they never
// fail the caller's query.
package cache
