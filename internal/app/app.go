// Package app assembles the daemon: configuration, logging, persistence,
// the broker pipeline and its collaborators, plus the optional mirror,
// sweeper and pprof surfaces.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"notibroker/internal/broker"
	"notibroker/internal/config"
	"notibroker/internal/distributed"
	"notibroker/internal/eventbus"
	"notibroker/internal/identity"
	"notibroker/internal/kvstore"
	"notibroker/internal/observability/pprof"
	"notibroker/internal/prefs"
	"notibroker/internal/registry"
	"notibroker/internal/sweeper"
	logx "notibroker/pkg/logx"
)

type App struct {
	cfgm   *config.ConfigManager
	logSvc *logx.Service
	log    logx.Logger
	bus    eventbus.Bus

	resolver *identity.StaticResolver
	engine   kvstore.Engine
	store    *prefs.Store
	broker   *broker.Broker

	mirror       *distributed.Service
	mirrorClient *redis.Client
	sweep        *sweeper.Service
	pprofSvc     *pprof.Service

	cfgCh       chan *config.Config
	watchCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	a := &App{
		cfgm:     cfgm,
		logSvc:   logSvc,
		log:      log,
		bus:      eventbus.New(),
		resolver: identity.NewStaticResolver(mapIdentity(cfg.Identity)),
	}
	return a, nil
}

// Broker exposes the assembled broker for the transport surface and tests.
func (a *App) Broker() *broker.Broker { return a.broker }

func (a *App) Bus() eventbus.Bus { return a.bus }

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	storageCfg, err := mapStorage(cfg.Storage)
	if err != nil {
		return err
	}
	engine, err := kvstore.Open(storageCfg, a.log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.engine = engine
	a.log.Info("storage opened", logx.String("driver", cfg.Storage.Driver))

	storeOpts := []prefs.Option{}
	if cfg.Broker.MaxSlotGroups > 0 {
		storeOpts = append(storeOpts, prefs.WithMaxSlotGroups(cfg.Broker.MaxSlotGroups))
	}
	a.store = prefs.New(engine, a.log.With(logx.String("comp", "prefs")), storeOpts...)

	brokerOpts := []broker.Option{
		broker.WithRemovalInvoker(&busRemovalInvoker{bus: a.bus, log: a.log}),
		broker.WithSlotBroadcaster(&busSlotBroadcaster{bus: a.bus}),
	}

	if cfg.Distributed.Enabled {
		mirrorCfg, transportClient, err := mapDistributed(cfg)
		if err != nil {
			return err
		}
		a.mirrorClient = transportClient
		transport := distributed.NewRedisTransport(transportClient, mirrorCfg.Channel)
		// handler is the broker; it does not exist yet, so wire after New.
		a.mirror = distributed.New(mirrorCfg, transport, deferredHandler{app: a}, a.log)
		brokerOpts = append(brokerOpts, broker.WithMirror(a.mirror))
	}

	a.broker = broker.New(mapBroker(cfg.Broker), a.resolver, a.store, a.bus, a.log, brokerOpts...)
	engine.OnState(a.broker.HandleEngineState)
	a.broker.Start()

	if a.mirror != nil {
		a.mirror.Start(ctx)
	}

	if cfg.Sweeper.Enabled {
		sweep, err := sweeper.New(sweeper.Config{Schedule: cfg.Sweeper.Schedule}, a.broker, a.log)
		if err != nil {
			return fmt.Errorf("sweeper: %w", err)
		}
		a.sweep = sweep
		a.sweep.Start()
	}

	pprofCfg, err := mapPprof(cfg.Pprof)
	if err != nil {
		return err
	}
	a.pprofSvc = pprof.New(pprofCfg, a.log)
	if err := a.pprofSvc.Start(); err != nil {
		return fmt.Errorf("pprof: %w", err)
	}

	a.startConfigWatch(ctx)
	a.log.Info("daemon started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	if a.cfgCh != nil {
		a.cfgm.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}
	if a.sweep != nil {
		a.sweep.Stop()
	}
	if a.mirror != nil {
		a.mirror.Stop()
	}
	if a.broker != nil {
		a.broker.Stop()
	}
	if a.mirrorClient != nil {
		_ = a.mirrorClient.Close()
	}
	if a.engine != nil {
		_ = a.engine.Close()
	}
	if a.pprofSvc != nil {
		a.pprofSvc.Stop(ctx)
	}
	a.log.Info("daemon stopped")
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
	return nil
}

// startConfigWatch hot-applies the reloadable sections: logging and the
// identity table. Storage, broker limits and the mirror need a restart.
func (a *App) startConfigWatch(ctx context.Context) {
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validate(cfg)
	})

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.cfgCh = a.cfgm.Subscribe(1)

	go func() { _ = a.cfgm.Watch(watchCtx) }()
	go func() {
		old := a.cfgm.Get()
		for {
			select {
			case <-watchCtx.Done():
				return
			case cfg, ok := <-a.cfgCh:
				if !ok {
					return
				}
				changed, attrs := config.SummarizeConfigChange(old, cfg)
				if len(changed) > 0 {
					a.log.Info("config reloaded", append(attrs, logx.Any("sections", changed))...)
				}
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.resolver.Replace(mapIdentity(cfg.Identity))
				old = cfg
			}
		}
	}()
}

func validate(cfg *config.Config) error {
	if cfg.Broker.MaxActive < 0 || cfg.Broker.MaxActivePerApp < 0 || cfg.Broker.MaxPerSecond < 0 {
		return fmt.Errorf("broker limits must be >= 0")
	}
	if cfg.Broker.MaxSlotGroups < 0 {
		return fmt.Errorf("broker.max_slot_groups must be >= 0")
	}
	if _, err := mapStorage(cfg.Storage); err != nil {
		return err
	}
	if cfg.Distributed.Enabled && cfg.Distributed.DeviceID == "" {
		return fmt.Errorf("distributed.device_id is required when mirroring is enabled")
	}
	if _, err := config.ParseDurationField("distributed.retry_base", cfg.Distributed.RetryBase); err != nil {
		return err
	}
	for i, app := range cfg.Identity.Apps {
		if app.Bundle == "" {
			return fmt.Errorf("identity.apps[%d]: bundle is required", i)
		}
		if app.UID < 0 {
			return fmt.Errorf("identity.apps[%d]: uid must be >= 0", i)
		}
	}
	return nil
}

func mapBroker(c config.BrokerConfig) broker.Config {
	return broker.Config{
		MaxIconSize:    c.MaxIconSize,
		MaxPictureSize: c.MaxPictureSize,
		QueueDepth:     c.QueueDepth,
		Flow: registry.FlowLimits{
			MaxActive:       c.MaxActive,
			MaxActivePerApp: c.MaxActivePerApp,
			MaxPerSecond:    c.MaxPerSecond,
		},
	}
}

func mapStorage(c config.StorageConfig) (kvstore.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	if err != nil {
		return kvstore.Config{}, err
	}
	ping, err := config.ParseDurationField("storage.ping_interval", c.PingInterval)
	if err != nil {
		return kvstore.Config{}, err
	}
	return kvstore.Config{
		Driver:       c.Driver,
		Path:         c.Path,
		BusyTimeout:  busy,
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		Namespace:    c.Namespace,
		PingInterval: ping,
	}, nil
}

func mapIdentity(c config.IdentityConfig) []identity.App {
	apps := make([]identity.App, 0, len(c.Apps))
	for _, a := range c.Apps {
		apps = append(apps, identity.App{
			Bundle:    a.Bundle,
			UID:       a.UID,
			UserID:    a.UserID,
			SystemApp: a.SystemApp,
		})
	}
	return apps
}

func mapDistributed(cfg *config.Config) (distributed.Config, *redis.Client, error) {
	c := cfg.Distributed
	retryBase, err := config.ParseDurationField("distributed.retry_base", c.RetryBase)
	if err != nil {
		return distributed.Config{}, nil, err
	}
	addr := c.Addr
	password := c.Password
	db := c.DB
	if addr == "" {
		// Fall back to the storage redis instance.
		addr = cfg.Storage.Addr
		password = cfg.Storage.Password
		db = cfg.Storage.DB
	}
	if addr == "" {
		return distributed.Config{}, nil, fmt.Errorf("distributed.addr is required (no storage redis to share)")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return distributed.Config{
		Enabled:    true,
		DeviceID:   c.DeviceID,
		Channel:    c.Channel,
		RatePerSec: c.RatePerSec,
		QueueSize:  c.QueueSize,
		RetryMax:   c.RetryMax,
		RetryBase:  retryBase,
	}, client, nil
}

func mapPprof(c config.PprofConfig) (pprof.Config, error) {
	read, err := config.ParseDurationField("pprof.read_timeout", c.ReadTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	idle, err := config.ParseDurationField("pprof.idle_timeout", c.IdleTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	return pprof.Config{
		Enabled:              c.Enabled,
		Addr:                 c.Addr,
		Prefix:               c.Prefix,
		Token:                c.Token,
		AllowInsecure:        c.AllowInsecure,
		ReadTimeout:          read,
		IdleTimeout:          idle,
		MutexProfileFraction: c.MutexProfileFraction,
		BlockProfileRate:     c.BlockProfileRate,
		MemProfileRate:       c.MemProfileRate,
	}, nil
}
