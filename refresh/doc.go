// Package refresh rebuilds locally stored agent snapshots from their
// authoritative sources.
//
// The Refresher hydrates one agent at a time, preferring the structured
// rows of a chain's index backend and falling back to a direct contract
// read plus the registration file it points at. Registration files are
// content-hashed so unchanged agents skip the store write.
//
// Bulk refreshes run through a fixed-size worker pool; individual
// failures are logged and skipped so one broken registration cannot
// stall a sweep. Full sweeps optionally checkpoint their progress and
// resume where an interrupted run left off.
package refresh
