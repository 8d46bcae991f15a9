// Package alerts implements the rule evaluation engine and webhook delivery
// for status alerting. Rules are evaluated against target snapshots as they
// are ingested; webhooks are delivered to Slack, Teams, Discord, or generic
// HTTP targets.
package alerts
