// Package auth provides authentication middleware for the ingest endpoint of
// sitestatus-server.
//
// APIKey(header, key) validates a shared key from the named HTTP header.
// Basic(username, hash) validates HTTP basic credentials against a bcrypt
// hash. FromConfig picks one based on server.auth.mode.
//
// When the API key is empty, all requests pass through (useful for local
// development with auth disabled). Rejected requests get a 401 with a JSON
// error body.
package auth
