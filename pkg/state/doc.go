// Package state persists variable definitions of a dashboard.
//
// A Store only loads and saves one Snapshot for one Ref. The Persister sits
// between a Store and a templating.Dispatcher:
//
//	Dispatcher -> adapter save models -> Snapshot -> Store   (Export)
//	Store -> Snapshot -> hydrate -> AddVariable intents      (Import)
//
// Snapshots hold save models, so transient fields such as index, global and
// the init lock never reach storage. Meta.ETag is derived from the snapshot
// content and guards concurrent exports.
package state
