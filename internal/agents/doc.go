// Package agents holds the business services behind the HTTP API: the
// synchronous contact lookup and content generator, and the unit handlers
// executed by workers for queued competitor and patent runs.
package agents
