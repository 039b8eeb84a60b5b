// Package agent defines the records and ports shared by the Chromara HQ agents:
// run bookkeeping, scraped pages, contact lookups, competitor insights, patents
// and generated content, plus the storage, fetch and queue interfaces the
// agents, workers and HTTP handlers are wired against.
package agent
