// Package dispatch tracks registered subscribers and fans broker events out
// to them.
//
// The registry is owned by the broker's worker goroutine: all mutation and
// all fan-out happen there, in task submission order, so delivery for a
// given event always reflects the registry state at that event's admission.
// Records handed to Notify* are snapshots; sinks may retain them.
package dispatch

import (
	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// Handle identifies one subscriber connection. It is opaque and comparable;
// the transport layer owns the underlying connection lifetime.
type Handle string

// Sink receives broker events. Implementations run on the broker worker and
// must not block; slow consumers should hand off internally.
type Sink interface {
	OnConsumed(r *notify.Record, m *notify.SortingMap)
	OnCanceled(r *notify.Record, m *notify.SortingMap, reason notify.DeleteReason)
	OnUpdated(m *notify.SortingMap)
	OnDoNotDisturbChanged(d notify.DoNotDisturbDate)
	OnEnabledChanged(bundle notify.BundleID, enabled bool)
}

type subscriber struct {
	handle  Handle
	sink    Sink
	bundles map[string]struct{}
	all     bool
}

func (s *subscriber) matches(bundleName string) bool {
	if s.all {
		return true
	}
	_, ok := s.bundles[bundleName]
	return ok
}

// Registry holds subscribers in registration order.
type Registry struct {
	subs []*subscriber
	log  logx.Logger
}

func NewRegistry(log logx.Logger) *Registry {
	return &Registry{log: log.With(logx.String("comp", "dispatch"))}
}

func (d *Registry) find(h Handle) (int, *subscriber) {
	for i, s := range d.subs {
		if s.handle == h {
			return i, s
		}
	}
	return -1, nil
}

// Subscribe registers h, or widens an existing registration. A nil bundle
// list means subscribe-all; a known handle keeps its registration-order
// slot and merges the new names into its filter.
func (d *Registry) Subscribe(h Handle, sink Sink, bundles []string) {
	_, s := d.find(h)
	if s == nil {
		s = &subscriber{handle: h, sink: sink, bundles: make(map[string]struct{})}
		d.subs = append(d.subs, s)
	} else if sink != nil {
		s.sink = sink
	}
	if bundles == nil {
		s.all = true
	} else {
		for _, b := range bundles {
			s.bundles[b] = struct{}{}
		}
	}
	d.log.Debug("subscriber registered", logx.String("handle", string(h)), logx.Bool("all", s.all), logx.Int("bundles", len(s.bundles)))
}

// Unsubscribe narrows or removes a registration. A nil bundle list clears
// the filter and drops the record; otherwise only the named bundles are
// removed, and the record is dropped once the filter is empty and the
// subscriber is not in subscribe-all mode.
func (d *Registry) Unsubscribe(h Handle, bundles []string) {
	i, s := d.find(h)
	if s == nil {
		return
	}
	if bundles == nil {
		d.remove(i)
		return
	}
	for _, b := range bundles {
		delete(s.bundles, b)
	}
	if len(s.bundles) == 0 && !s.all {
		d.remove(i)
	}
}

// PeerDied handles a subscriber connection death. Identical to a full
// unsubscribe; callers must submit it through the broker worker first.
func (d *Registry) PeerDied(h Handle) {
	d.log.Info("subscriber peer died", logx.String("handle", string(h)))
	d.Unsubscribe(h, nil)
}

func (d *Registry) remove(i int) {
	h := d.subs[i].handle
	d.subs = append(d.subs[:i], d.subs[i+1:]...)
	d.log.Debug("subscriber removed", logx.String("handle", string(h)))
}

func (d *Registry) Len() int { return len(d.subs) }

// NotifyConsumed delivers a newly admitted or updated record.
func (d *Registry) NotifyConsumed(r *notify.Record, m *notify.SortingMap) {
	for _, s := range d.subs {
		if s.matches(r.Owner.Name) {
			s.sink.OnConsumed(r, m)
		}
	}
}

// NotifyCanceled delivers a removal with its delete reason.
func (d *Registry) NotifyCanceled(r *notify.Record, m *notify.SortingMap, reason notify.DeleteReason) {
	for _, s := range d.subs {
		if s.matches(r.Owner.Name) {
			s.sink.OnCanceled(r, m, reason)
		}
	}
}

// NotifyUpdated delivers a ranking change with no single affected record.
// Ranking is global, so bundle filters do not apply.
func (d *Registry) NotifyUpdated(m *notify.SortingMap) {
	for _, s := range d.subs {
		s.sink.OnUpdated(m)
	}
}

func (d *Registry) NotifyDoNotDisturbChanged(date notify.DoNotDisturbDate) {
	for _, s := range d.subs {
		s.sink.OnDoNotDisturbChanged(date)
	}
}

func (d *Registry) NotifyEnabledChanged(bundle notify.BundleID, enabled bool) {
	for _, s := range d.subs {
		if s.matches(bundle.Name) {
			s.sink.OnEnabledChanged(bundle, enabled)
		}
	}
}
