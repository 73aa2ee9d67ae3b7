// Package broker is the advanced notification service: the one component
// with public entry points. It owns the admission pipeline (identity
// resolution, payload validation, slot resolution, filter chain, flow
// control), the active registry, the subscriber dispatcher and the
// preference surface, and serializes every state mutation through a
// single-consumer task actor.
package broker

import (
	"time"

	"github.com/google/uuid"

	"notibroker/internal/dispatch"
	"notibroker/internal/eventbus"
	"notibroker/internal/filter"
	"notibroker/internal/identity"
	"notibroker/internal/notify"
	"notibroker/internal/prefs"
	"notibroker/internal/registry"
	logx "notibroker/pkg/logx"
)

// Size limits for embedded images.
const (
	DefaultMaxIconSize    = 50 * 1024
	DefaultMaxPictureSize = 2 * 1024 * 1024
)

// Mirror ships locally admitted records to other devices. Implementations
// queue internally; calls must not block the worker.
type Mirror interface {
	Publish(r *notify.Record)
	Update(r *notify.Record)
	Delete(r *notify.Record)
}

// RemovalInvoker triggers the publisher's on-removed callback referenced by
// a record's remove token. The broker calls it exactly once per removed
// record, never for flow-control evictions.
type RemovalInvoker interface {
	InvokeRemoval(token string, key notify.RecordKey)
}

// SlotBroadcaster receives the external "slot changed" broadcast emitted
// when a slot's enabled flag flips.
type SlotBroadcaster interface {
	SlotChanged(bundle notify.BundleID, slotType notify.SlotType, enabled bool)
}

// Config tunes the broker's admission limits.
type Config struct {
	MaxIconSize    int                 `json:"max_icon_size" yaml:"max_icon_size"`
	MaxPictureSize int                 `json:"max_picture_size" yaml:"max_picture_size"`
	QueueDepth     int                 `json:"queue_depth" yaml:"queue_depth"`
	Flow           registry.FlowLimits `json:"flow" yaml:"flow"`
}

func DefaultConfig() Config {
	return Config{
		MaxIconSize:    DefaultMaxIconSize,
		MaxPictureSize: DefaultMaxPictureSize,
		QueueDepth:     defaultQueueDepth,
		Flow:           registry.DefaultFlowLimits(),
	}
}

func (c Config) withDefaults() Config {
	if c.MaxIconSize <= 0 {
		c.MaxIconSize = DefaultMaxIconSize
	}
	if c.MaxPictureSize <= 0 {
		c.MaxPictureSize = DefaultMaxPictureSize
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	return c
}

// Broker wires the pipeline together. All fields past the actor are owned
// by the worker goroutine and never touched from caller threads.
type Broker struct {
	cfg   Config
	log   logx.Logger
	bus   eventbus.Bus
	actor *actor

	ident   identity.Resolver
	prefs   *prefs.Store
	filters *filter.Chain
	reg     *registry.Registry
	flow    *registry.FlowController
	subs    *dispatch.Registry

	mirror    Mirror
	onRemoved RemovalInvoker
	slotCast  SlotBroadcaster

	now func() time.Time
}

// Option tweaks broker construction.
type Option func(*Broker)

// WithMirror attaches the distributed sync collaborator.
func WithMirror(m Mirror) Option { return func(b *Broker) { b.mirror = m } }

// WithRemovalInvoker attaches the removal-callback collaborator.
func WithRemovalInvoker(inv RemovalInvoker) Option { return func(b *Broker) { b.onRemoved = inv } }

// WithSlotBroadcaster attaches the slot-changed broadcast collaborator.
func WithSlotBroadcaster(s SlotBroadcaster) Option { return func(b *Broker) { b.slotCast = s } }

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) Option { return func(b *Broker) { b.now = now } }

// WithFilters replaces the default filter chain.
func WithFilters(c *filter.Chain) Option { return func(b *Broker) { b.filters = c } }

func New(cfg Config, ident identity.Resolver, store *prefs.Store, bus eventbus.Bus, log logx.Logger, opts ...Option) *Broker {
	cfg = cfg.withDefaults()
	b := &Broker{
		cfg:   cfg,
		log:   log.With(logx.String("comp", "broker")),
		bus:   bus,
		ident: ident,
		prefs: store,
		reg:   registry.New(),
		flow:  registry.NewFlowController(cfg.Flow),
		subs:  dispatch.NewRegistry(log),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.filters == nil {
		b.filters = filter.Default(store, b.now)
	}
	b.actor = newActor(cfg.QueueDepth, b.log, bus)
	return b
}

// Start launches the worker. The broker accepts no calls before Start and
// none after Stop.
func (b *Broker) Start() {
	b.actor.start()
	b.log.Info("broker started",
		logx.Int("max_active", b.cfg.Flow.MaxActive),
		logx.Int("max_per_app", b.cfg.Flow.MaxActivePerApp),
		logx.Int("max_per_second", b.cfg.Flow.MaxPerSecond))
}

// Stop shuts the worker down and waits for it to drain.
func (b *Broker) Stop() {
	b.actor.stop()
	b.log.Info("broker stopped")
}

// Subscribe registers a sink for broker events, optionally filtered to the
// given bundle names (nil means all). An empty handle gets a fresh one;
// the returned handle is what Unsubscribe and liveness callbacks use.
func (b *Broker) Subscribe(handle dispatch.Handle, sink dispatch.Sink, bundles []string) (dispatch.Handle, error) {
	if sink == nil {
		return "", notify.ErrInvalidParam
	}
	if handle == "" {
		handle = dispatch.Handle(uuid.NewString())
	}
	err := b.actor.submit("subscribe", func() {
		b.subs.Subscribe(handle, sink, bundles)
	})
	if err != nil {
		return "", err
	}
	return handle, nil
}

// Unsubscribe narrows or removes a subscription; nil bundles removes it.
func (b *Broker) Unsubscribe(handle dispatch.Handle, bundles []string) error {
	return b.actor.submit("unsubscribe", func() {
		b.subs.Unsubscribe(handle, bundles)
	})
}

// PeerDied is the liveness callback for a subscriber connection. It arrives
// on a notifier thread and is serialized like any other mutation; the
// caller does not wait for it.
func (b *Broker) PeerDied(handle dispatch.Handle) {
	b.actor.submitAsync("peer-died", func() {
		b.subs.PeerDied(handle)
	})
}

// HandleEngineState is the persistence-engine death/reconnect callback.
// Forwarded to the preference store on the worker.
func (b *Broker) HandleEngineState(alive bool) {
	b.actor.submitAsync("engine-state", func() {
		b.prefs.HandleEngineState(alive)
		if b.bus != nil {
			b.bus.Publish(eventbus.Event{Type: eventbus.TypeEngineState, Data: eventbus.EngineState{Alive: alive}})
		}
	})
}

func (b *Broker) nowMs() int64 { return b.now().UnixMilli() }

// resolveCaller maps a caller uid to its bundle identity.
func (b *Broker) resolveCaller(uid int32) (notify.BundleID, error) {
	id, ok := identity.Resolve(b.ident, uid)
	if !ok {
		return notify.BundleID{}, notify.ErrInvalidBundle
	}
	return id, nil
}

func (b *Broker) requireSystemApp(uid int32) error {
	if !b.ident.IsSystemApp(uid) {
		return notify.ErrNonSystemApp
	}
	return nil
}
