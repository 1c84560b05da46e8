/*
Package history serialises access to the per-surface navigation histories.

The Manager wraps a ports.HistoryStore and guarantees that only one
read-modify-write of a given surface's history runs at a time, using
reference-counted in-process mutexes and, optionally, a ports.DistributedLocker
for replicas sharing a store.
*/
package history
