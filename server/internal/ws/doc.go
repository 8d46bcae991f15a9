// Package ws streams the status page to browsers over WebSocket.
//
// A Hub sends every viewer the same document GET /api/v1/snapshot returns,
// wrapped as {"event":"snapshot","data":{...}}. Frames go out on connect, on
// every stream interval and whenever Notify is called; the server calls
// Notify after each accepted ingest so pages update without waiting for the
// next tick.
//
// Connecting with ?target=<id> limits the cards to that target. Viewers that
// fall more than a few frames behind are disconnected.
package ws
