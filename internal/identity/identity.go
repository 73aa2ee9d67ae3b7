// Package identity resolves numeric caller uids to application bundles.
//
// The broker never trusts caller-supplied bundle names; every entry point
// resolves the calling uid through a Resolver. On a real device this is
// backed by the package manager; the static resolver below serves daemons
// configured from file and the test suites.
package identity

import (
	"sync"

	"notibroker/internal/notify"
)

// Resolver maps uids to bundle identity. Lookups are non-fatal: a missing
// uid yields ok=false and the broker surfaces ErrInvalidBundle/ErrInvalidUID.
type Resolver interface {
	// BundleName returns the bundle name owning uid.
	BundleName(uid int32) (string, bool)
	// IsSystemApp reports whether uid belongs to a privileged system app.
	IsSystemApp(uid int32) bool
	// DefaultUID returns the uid a bundle name runs under for userID.
	DefaultUID(bundleName string, userID int32) (int32, bool)
}

// App is one registered application entry of a StaticResolver.
type App struct {
	Bundle    string `json:"bundle" yaml:"bundle"`
	UID       int32  `json:"uid" yaml:"uid"`
	UserID    int32  `json:"user_id" yaml:"user_id"`
	SystemApp bool   `json:"system_app" yaml:"system_app"`
}

// StaticResolver is a table-backed Resolver. It is safe for concurrent use;
// Replace swaps the whole table (config hot reload).
type StaticResolver struct {
	mu    sync.RWMutex
	byUID map[int32]App
	apps  []App
}

func NewStaticResolver(apps []App) *StaticResolver {
	r := &StaticResolver{}
	r.Replace(apps)
	return r
}

func (r *StaticResolver) Replace(apps []App) {
	byUID := make(map[int32]App, len(apps))
	for _, a := range apps {
		byUID[a.UID] = a
	}
	r.mu.Lock()
	r.byUID = byUID
	r.apps = append([]App(nil), apps...)
	r.mu.Unlock()
}

func (r *StaticResolver) BundleName(uid int32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byUID[uid]
	if !ok || a.Bundle == "" {
		return "", false
	}
	return a.Bundle, true
}

func (r *StaticResolver) IsSystemApp(uid int32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUID[uid].SystemApp
}

func (r *StaticResolver) DefaultUID(bundleName string, userID int32) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.apps {
		if a.Bundle == bundleName && a.UserID == userID {
			return a.UID, true
		}
	}
	return 0, false
}

// Resolve is a convenience wrapper turning a uid into a BundleID.
func Resolve(r Resolver, uid int32) (notify.BundleID, bool) {
	name, ok := r.BundleName(uid)
	if !ok {
		return notify.BundleID{}, false
	}
	return notify.BundleID{Name: name, UID: uid}, true
}
