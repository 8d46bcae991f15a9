// Package receiver implements POST /api/v1/ingest, the endpoint that accepts
// TargetSnapshot batches from sitestatus-agent instances.
//
// The body is a JSON array of snapshots or a single snapshot object. Every
// snapshot must carry a target_id (400 otherwise). Accepted snapshots are
// written to the store, passed to the alert engine and appended to the
// archive when one is configured. Authentication is enforced upstream by the
// auth middleware, so the receiver itself only performs structural validation.
//
// New(st, opts) wires the receiver to the given snapshot store.
package receiver
