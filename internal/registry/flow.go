package registry

import (
	"time"

	"notibroker/internal/notify"
)

// Default admission limits.
const (
	DefaultMaxActive       = 1000
	DefaultMaxActivePerApp = 100
	DefaultMaxPerSecond    = 10
)

// FlowLimits bounds how many notifications may be live and how fast new
// ones may arrive.
type FlowLimits struct {
	MaxActive       int `json:"max_active" yaml:"max_active"`
	MaxActivePerApp int `json:"max_active_per_app" yaml:"max_active_per_app"`
	MaxPerSecond    int `json:"max_per_second" yaml:"max_per_second"`
}

func DefaultFlowLimits() FlowLimits {
	return FlowLimits{
		MaxActive:       DefaultMaxActive,
		MaxActivePerApp: DefaultMaxActivePerApp,
		MaxPerSecond:    DefaultMaxPerSecond,
	}
}

func (l FlowLimits) withDefaults() FlowLimits {
	if l.MaxActive <= 0 {
		l.MaxActive = DefaultMaxActive
	}
	if l.MaxActivePerApp <= 0 {
		l.MaxActivePerApp = DefaultMaxActivePerApp
	}
	if l.MaxPerSecond <= 0 {
		l.MaxPerSecond = DefaultMaxPerSecond
	}
	return l
}

// FlowController applies rate and capacity admission to new inserts.
// Updates to already-live records bypass it entirely.
//
// The rate limit is a trailing one-second window over admission attempts
// for which capacity was evaluated; a rejected attempt leaves no trace, so
// it does not push later publishes over the limit.
type FlowController struct {
	limits FlowLimits
	stamps []time.Time
	now    func() time.Time
}

func NewFlowController(limits FlowLimits) *FlowController {
	return &FlowController{limits: limits.withDefaults(), now: time.Now}
}

// SetClock overrides the time source. Test use only.
func (f *FlowController) SetClock(now func() time.Time) { f.now = now }

// Admit checks the rate window and capacity limits for a new insert into
// reg. On success it returns the records evicted to make room; the caller
// inserts the new record and reports each eviction as a cancellation. On
// rate rejection it returns ErrOverRate and the registry is untouched.
func (f *FlowController) Admit(reg *Registry, r *notify.Record) ([]*notify.Record, error) {
	now := f.now()
	f.prune(now)
	if len(f.stamps) >= f.limits.MaxPerSecond {
		return nil, notify.ErrOverRate
	}
	f.stamps = append(f.stamps, now)

	var evicted []*notify.Record
	if owned := reg.ByOwner(r.Owner); len(owned) >= f.limits.MaxActivePerApp {
		if v := evictionVictim(owned); v != nil {
			reg.Remove(v.Key())
			evicted = append(evicted, v)
		}
	}
	if reg.Len() >= f.limits.MaxActive {
		// At the global cap the publisher's own records are sacrificed
		// first; other owners lose one only when the publisher holds
		// nothing live.
		candidates := reg.ByOwner(r.Owner)
		if len(candidates) == 0 {
			candidates = reg.All()
		}
		if v := evictionVictim(candidates); v != nil {
			reg.Remove(v.Key())
			evicted = append(evicted, v)
		}
	}
	return evicted, nil
}

func (f *FlowController) prune(now time.Time) {
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(f.stamps) && !f.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		f.stamps = append(f.stamps[:0], f.stamps[i:]...)
	}
}
