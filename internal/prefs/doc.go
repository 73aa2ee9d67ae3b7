// Package prefs is the persisted preference model of the broker: per-bundle
// notification slots and slot groups, per-bundle scalar settings (badges,
// importance, enablement), and per-user global enablement plus the
// do-not-disturb window.
//
// # Storage model
//
// The store keeps a full in-memory image of the preference state and writes
// through to a kvstore.Engine as one JSON blob per bundle and per user.
// Mutations follow copy-modify-commit: the change is applied to a copy,
// persisted, and only then committed to the cache, so a failed write never
// leaves the cache ahead of the engine.
//
// # Engine outages
//
// Engine death is not a per-call error. While the engine is reported dead
// the store keeps mutating its cache and remembers the dirty keys; when the
// engine reconnects the dirty entries are flushed and the image is reloaded.
//
// # Concurrency
//
// All methods are safe for concurrent use, but the broker serializes every
// call through its worker so reads always observe a consistent snapshot.
package prefs
