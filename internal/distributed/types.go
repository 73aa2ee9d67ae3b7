// Package distributed mirrors notifications across devices. Outbound, a
// paced worker ships admitted records to a shared sync channel; inbound, a
// listener re-enters remote records through the broker exactly as a local
// publish or cancel would, tagged with their origin device id.
package distributed

import (
	"context"
	"time"

	"notibroker/internal/notify"
)

// Op is the mirrored operation kind.
type Op string

const (
	OpPublish Op = "publish"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
)

// Envelope is the wire form of one mirrored operation. The (Bundle,
// OwnerUID) pair is the origin device's identity for the record and is
// trusted as-is on the receiving side; uid tables differ between devices,
// so re-resolving the uid locally would reject legitimate remote records.
type Envelope struct {
	Op       Op             `json:"op"`
	DeviceID string         `json:"device_id"`
	Bundle   string         `json:"bundle"`
	OwnerUID int32          `json:"owner_uid"`
	Label    string         `json:"label"`
	ID       int32          `json:"id"`
	Content  notify.Content `json:"content,omitempty"`
	SentAt   int64          `json:"sent_at"` // epoch ms
}

// Transport ships envelopes to and from the sync channel.
type Transport interface {
	Send(ctx context.Context, env Envelope) error
	// Listen blocks, delivering inbound envelopes to fn until ctx ends.
	Listen(ctx context.Context, fn func(Envelope)) error
	Close() error
}

// Handler is the broker surface the inbound side re-enters through.
type Handler interface {
	PublishFromDevice(deviceID string, owner notify.BundleID, content notify.Content) error
	DeleteFromDevice(deviceID string, owner notify.BundleID, label string, id int32) error
}

// Config tunes the mirror service.
type Config struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	DeviceID   string        `json:"device_id" yaml:"device_id"`
	Channel    string        `json:"channel" yaml:"channel"`
	RatePerSec int           `json:"rate_per_sec" yaml:"rate_per_sec"`
	QueueSize  int           `json:"queue_size" yaml:"queue_size"`
	RetryMax   int           `json:"retry_max" yaml:"retry_max"`
	RetryBase  time.Duration `json:"retry_base" yaml:"retry_base"`
}

func (c Config) withDefaults() Config {
	if c.Channel == "" {
		c.Channel = "notibroker:sync"
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 20
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	return c
}
