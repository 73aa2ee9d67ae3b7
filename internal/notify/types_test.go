package notify

import "testing"

func TestRecordKeyString(t *testing.T) {
	t.Parallel()
	key := RecordKey{
		Owner: BundleID{Name: "app1", UID: 42},
		Label: "L",
		ID:    7,
	}
	if got, want := key.String(), "_app1_42_L_7"; got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}

	key.DeviceID = "dev9"
	if got, want := key.String(), "dev9_app1_42_L_7"; got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

func TestUserID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		uid  int32
		want int32
	}{
		{uid: 0, want: 0},
		{uid: 99999, want: 0},
		{uid: 100000, want: 1},
		{uid: 250042, want: 2},
		{uid: -5, want: 0},
	}
	for _, tt := range tests {
		if got := UserID(tt.uid); got != tt.want {
			t.Fatalf("UserID(%d) = %d, want %d", tt.uid, got, tt.want)
		}
	}
}

func TestSnapshotIsDeep(t *testing.T) {
	t.Parallel()
	slot := DefaultSlot(SlotSocialCommunication)
	r := &Record{
		Owner:   BundleID{Name: "app1", UID: 42},
		Content: Content{ID: 1, Label: "L", LittleIcon: []byte{1, 2}},
		Slot:    &slot,
	}
	cp := r.Snapshot()

	r.Content.LittleIcon[0] = 9
	r.Slot.Enabled = false
	if cp.Content.LittleIcon[0] != 1 {
		t.Fatal("snapshot shares icon bytes with the original")
	}
	if !cp.Slot.Enabled {
		t.Fatal("snapshot shares slot with the original")
	}
}

func TestDefaultSlotProfiles(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ        SlotType
		level      SlotLevel
		visibility Visibleness
		vibrates   bool
	}{
		{typ: SlotSocialCommunication, level: LevelHigh, visibility: VisiblenessPublic, vibrates: true},
		{typ: SlotServiceReminder, level: LevelDefault, visibility: VisiblenessPublic, vibrates: true},
		{typ: SlotContentInformation, level: LevelLow, visibility: VisiblenessSecret, vibrates: false},
		{typ: SlotOther, level: LevelMin, visibility: VisiblenessSecret, vibrates: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.typ.String(), func(t *testing.T) {
			s := DefaultSlot(tt.typ)
			if !s.Enabled {
				t.Fatal("default slot must be enabled")
			}
			if s.Level != tt.level {
				t.Fatalf("level = %v, want %v", s.Level, tt.level)
			}
			if s.LockScreenVisibleness != tt.visibility {
				t.Fatalf("visibleness = %v, want %v", s.LockScreenVisibleness, tt.visibility)
			}
			if (len(s.VibrationStyle) > 0) != tt.vibrates {
				t.Fatalf("vibration style = %v", s.VibrationStyle)
			}
		})
	}
}
