// Package security checks the TLS certificates of the upstream feed endpoints.
// The resulting CertStatus records ride along in every shipped snapshot so the
// server can alert before a feed certificate lapses.
package security
