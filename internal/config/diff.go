package config

import (
	"reflect"
	"strings"

	logx "notibroker/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (redis passwords, pprof tokens) are
// never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Broker != newCfg.Broker {
		changed = append(changed, "broker")
		attrs = append(attrs,
			logx.Int("broker.max_active", newCfg.Broker.MaxActive),
			logx.Int("broker.max_active_per_app", newCfg.Broker.MaxActivePerApp),
			logx.Int("broker.max_per_second", newCfg.Broker.MaxPerSecond),
		)
	}

	// Storage (never log password)
	if oldCfg.Storage.Driver != newCfg.Storage.Driver ||
		strings.TrimSpace(oldCfg.Storage.Path) != strings.TrimSpace(newCfg.Storage.Path) ||
		strings.TrimSpace(oldCfg.Storage.Addr) != strings.TrimSpace(newCfg.Storage.Addr) ||
		oldCfg.Storage.DB != newCfg.Storage.DB ||
		oldCfg.Storage.Namespace != newCfg.Storage.Namespace {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.addr_set", strings.TrimSpace(newCfg.Storage.Addr) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Identity, newCfg.Identity) {
		changed = append(changed, "identity")
		attrs = append(attrs, logx.Int("identity.apps", len(newCfg.Identity.Apps)))
	}

	// Distributed (never log password)
	if oldCfg.Distributed.Enabled != newCfg.Distributed.Enabled ||
		oldCfg.Distributed.DeviceID != newCfg.Distributed.DeviceID ||
		oldCfg.Distributed.Channel != newCfg.Distributed.Channel ||
		oldCfg.Distributed.RatePerSec != newCfg.Distributed.RatePerSec {
		changed = append(changed, "distributed")
		attrs = append(attrs,
			logx.Bool("distributed.enabled", newCfg.Distributed.Enabled),
			logx.String("distributed.device_id", newCfg.Distributed.DeviceID),
		)
	}

	if oldCfg.Sweeper != newCfg.Sweeper {
		changed = append(changed, "sweeper")
		attrs = append(attrs,
			logx.Bool("sweeper.enabled", newCfg.Sweeper.Enabled),
			logx.String("sweeper.schedule", newCfg.Sweeper.Schedule),
		)
	}

	// Pprof (never log token)
	if oldCfg.Pprof.Enabled != newCfg.Pprof.Enabled ||
		strings.TrimSpace(oldCfg.Pprof.Addr) != strings.TrimSpace(newCfg.Pprof.Addr) {
		changed = append(changed, "pprof")
		attrs = append(attrs, logx.Bool("pprof.enabled", newCfg.Pprof.Enabled))
	}

	return changed, attrs
}
