package dispatch

import (
	"fmt"
	"testing"

	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// recordingSink collects delivered events as compact strings.
type recordingSink struct {
	events []string
}

func (s *recordingSink) OnConsumed(r *notify.Record, _ *notify.SortingMap) {
	s.events = append(s.events, "consumed:"+r.Owner.Name)
}

func (s *recordingSink) OnCanceled(r *notify.Record, _ *notify.SortingMap, reason notify.DeleteReason) {
	s.events = append(s.events, fmt.Sprintf("canceled:%s:%s", r.Owner.Name, reason))
}

func (s *recordingSink) OnUpdated(_ *notify.SortingMap) {
	s.events = append(s.events, "updated")
}

func (s *recordingSink) OnDoNotDisturbChanged(_ notify.DoNotDisturbDate) {
	s.events = append(s.events, "dnd")
}

func (s *recordingSink) OnEnabledChanged(bundle notify.BundleID, enabled bool) {
	s.events = append(s.events, fmt.Sprintf("enabled:%s:%v", bundle.Name, enabled))
}

func rec(bundle string) *notify.Record {
	return &notify.Record{Owner: notify.BundleID{Name: bundle, UID: 42}}
}

func TestBundleFilterMatching(t *testing.T) {
	t.Parallel()
	d := NewRegistry(logx.Nop())
	onlyA := &recordingSink{}
	all := &recordingSink{}
	d.Subscribe("h-a", onlyA, []string{"A"})
	d.Subscribe("h-all", all, nil)

	d.NotifyConsumed(rec("A"), nil)
	d.NotifyConsumed(rec("B"), nil)

	if len(onlyA.events) != 1 || onlyA.events[0] != "consumed:A" {
		t.Fatalf("filtered sink got %v, want only A", onlyA.events)
	}
	if len(all.events) != 2 {
		t.Fatalf("subscribe-all sink got %v, want both", all.events)
	}
}

func TestSubscribeMergesFilter(t *testing.T) {
	t.Parallel()
	d := NewRegistry(logx.Nop())
	s := &recordingSink{}
	d.Subscribe("h", s, []string{"A"})
	d.Subscribe("h", s, []string{"B"})
	if d.Len() != 1 {
		t.Fatalf("len = %d, want 1 merged registration", d.Len())
	}

	d.NotifyConsumed(rec("A"), nil)
	d.NotifyConsumed(rec("B"), nil)
	d.NotifyConsumed(rec("C"), nil)
	if len(s.events) != 2 {
		t.Fatalf("events = %v, want A and B only", s.events)
	}

	// A later nil subscription widens to subscribe-all.
	d.Subscribe("h", s, nil)
	d.NotifyConsumed(rec("C"), nil)
	if len(s.events) != 3 {
		t.Fatalf("events = %v, want C delivered after widening", s.events)
	}
}

func TestUnsubscribeNarrowsThenRemoves(t *testing.T) {
	t.Parallel()
	d := NewRegistry(logx.Nop())
	s := &recordingSink{}
	d.Subscribe("h", s, []string{"A", "B"})

	d.Unsubscribe("h", []string{"A"})
	if d.Len() != 1 {
		t.Fatal("record dropped while filter still non-empty")
	}
	d.NotifyConsumed(rec("A"), nil)
	if len(s.events) != 0 {
		t.Fatalf("events = %v after narrowing away A", s.events)
	}

	d.Unsubscribe("h", []string{"B"})
	if d.Len() != 0 {
		t.Fatal("record kept after its filter emptied")
	}
}

func TestUnsubscribeNilClears(t *testing.T) {
	t.Parallel()
	d := NewRegistry(logx.Nop())
	d.Subscribe("h", &recordingSink{}, nil)
	d.Unsubscribe("h", nil)
	if d.Len() != 0 {
		t.Fatal("subscribe-all record survived a nil unsubscribe")
	}
}

func TestPeerDiedActsAsFullUnsubscribe(t *testing.T) {
	t.Parallel()
	d := NewRegistry(logx.Nop())
	s := &recordingSink{}
	d.Subscribe("h", s, nil)
	d.PeerDied("h")
	if d.Len() != 0 {
		t.Fatal("dead peer still registered")
	}
	d.NotifyConsumed(rec("A"), nil)
	if len(s.events) != 0 {
		t.Fatalf("dead peer still receives events: %v", s.events)
	}
}

func TestDeliveryFollowsRegistrationOrder(t *testing.T) {
	t.Parallel()
	d := NewRegistry(logx.Nop())
	var order []string
	mk := func(name string) Sink {
		return &orderSink{name: name, order: &order}
	}
	d.Subscribe("h1", mk("first"), nil)
	d.Subscribe("h2", mk("second"), nil)
	d.Subscribe("h3", mk("third"), nil)

	d.NotifyUpdated(nil)
	want := []string{"first", "second", "third"}
	if len(order) != 3 {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

type orderSink struct {
	name  string
	order *[]string
}

func (s *orderSink) OnConsumed(*notify.Record, *notify.SortingMap) {
	*s.order = append(*s.order, s.name)
}

func (s *orderSink) OnCanceled(*notify.Record, *notify.SortingMap, notify.DeleteReason) {
	*s.order = append(*s.order, s.name)
}

func (s *orderSink) OnUpdated(*notify.SortingMap) {
	*s.order = append(*s.order, s.name)
}

func (s *orderSink) OnDoNotDisturbChanged(notify.DoNotDisturbDate) {
	*s.order = append(*s.order, s.name)
}

func (s *orderSink) OnEnabledChanged(notify.BundleID, bool) {
	*s.order = append(*s.order, s.name)
}
