// Package types defines the wire types shared by the agent and the server:
// the raw upstream samples the agent consumes and the per-target snapshots it
// ships to the server.
package types
