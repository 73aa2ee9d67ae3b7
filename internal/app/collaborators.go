package app

import (
	"notibroker/internal/distributed"
	"notibroker/internal/eventbus"
	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// busRemovalInvoker is the removal-callback collaborator: without a client
// transport attached, firing the publisher's on-removed reference means
// surfacing it on the telemetry bus, where the transport layer picks it up.
type busRemovalInvoker struct {
	bus eventbus.Bus
	log logx.Logger
}

func (i *busRemovalInvoker) InvokeRemoval(token string, key notify.RecordKey) {
	i.log.Debug("removal callback", logx.String("token", token), logx.String("key", key.String()))
	i.bus.Publish(eventbus.Event{Type: eventbus.TypeRemoval, Data: eventbus.Removal{
		Token: token,
		Key:   key.String(),
	}})
}

// busSlotBroadcaster surfaces slot-changed broadcasts the same way.
type busSlotBroadcaster struct {
	bus eventbus.Bus
}

func (b *busSlotBroadcaster) SlotChanged(bundle notify.BundleID, slotType notify.SlotType, enabled bool) {
	b.bus.Publish(eventbus.Event{Type: eventbus.TypeSlotChanged, Data: eventbus.SlotChanged{
		Bundle:  bundle.Name,
		UID:     bundle.UID,
		Slot:    slotType.String(),
		Enabled: enabled,
	}})
}

// deferredHandler breaks the construction cycle between the mirror and the
// broker: the mirror is built first so the broker can take it as an option,
// and inbound traffic resolves the broker at call time. Listen starts only
// after Start, by which point the broker exists.
type deferredHandler struct {
	app *App
}

func (h deferredHandler) PublishFromDevice(deviceID string, owner notify.BundleID, content notify.Content) error {
	return h.app.broker.PublishFromDevice(deviceID, owner, content)
}

func (h deferredHandler) DeleteFromDevice(deviceID string, owner notify.BundleID, label string, id int32) error {
	return h.app.broker.DeleteFromDevice(deviceID, owner, label, id)
}

var _ distributed.Handler = deferredHandler{}
