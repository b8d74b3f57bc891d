// Package server exposes list reconciliation over HTTP.
//
// Routes:
//
//	POST /v1/diff     JSON diff of two key lists
//	GET  /v1/stream   websocket stream of snapshot → diff frames
//	GET  /metrics     Prometheus metrics
//	GET  /healthz     liveness check
//
// # Streams
//
// A stream session owns one string-keyed reconciler. The client sends
// FrameSnapshot frames holding its full key list; the server answers each
// with a FrameDiff frame holding the edit script from the previous list.
// The session ID is returned in the X-Keyed-Session response header of the
// upgrade. Reconnecting with ?session=<id> resumes from the last list saved
// in the snapshot store, so the first diff after a reconnect is relative
// to it instead of to an empty list.
package server
