// Package snapshot persists the last key list of a stream session so a
// reconnecting client can resume from it.
//
// Two backends are provided: MemoryStore for single-server deployments and
// S3Store, which keeps one object per session in an S3 bucket.
package snapshot
