// Package feed fetches the two upstream status feeds.
//
// Client.History returns the history feed (a JSON array of samples, newest
// first) and Client.Latest the latest feed (a JSON object keyed by target
// id). Both decode row by row: a malformed row is skipped and counted, never
// fatal to the whole payload.
//
// Repeated fetches of the same feed inside its dedupe window are answered
// from the previous response, and concurrent fetches share one request via
// singleflight. Authentication (API key, bearer, basic) is applied by the
// authRoundTripper in client.go.
package feed
