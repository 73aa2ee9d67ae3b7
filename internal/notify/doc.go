// Package notify holds the shared data model of the notification broker.
//
// The types here travel through the whole pipeline: a published Record is
// validated by the filter chain, admitted by the flow controller, stored in
// the active registry and finally snapshotted for subscriber fan-out. The
// package is deliberately free of I/O and goroutines; all behavior attached
// to these types is pure so every layer can reason about them the same way.
//
// # Identity
//
// A Record is identified by (owner bundle, label, id, origin device). The
// broker guarantees at most one live record per identity key; publishing
// the same key again is an update, not a duplicate.
//
// # Errors
//
// errors.go defines the full error taxonomy returned by broker operations.
// All of them are sentinel values intended for errors.Is; none of them is
// ever delivered as a panic.
package notify
