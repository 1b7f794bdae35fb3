// Package storage persists the task store's state between runs.
//
// State is exactly two durable entries:
//   - the full reboot task collection
//   - the id counter (next id to assign)
//
// Save replaces both entries wholesale; the in-memory store stays
// authoritative and treats save failures as non-fatal.
package storage
