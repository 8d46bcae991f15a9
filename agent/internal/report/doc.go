// Package report renders snapshots as a plain-text status page for the
// agent's one-shot mode.
package report
