package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"notibroker/internal/kvstore"
	"notibroker/internal/notify"
	"notibroker/pkg/logx"
)

const (
	bundleKeyPrefix = "pref/bundle/"
	userKeyPrefix   = "pref/user/"
)

// DefaultMaxSlotGroups matches the platform limit of four groups per bundle.
const DefaultMaxSlotGroups = 4

// BundleInfo is the persisted preference state of one bundle.
type BundleInfo struct {
	Bundle notify.BundleID `json:"bundle"`

	Slots  map[notify.SlotType]notify.Slot `json:"slots,omitempty"`
	Groups map[string]notify.SlotGroup     `json:"groups,omitempty"`

	Enabled        bool  `json:"enabled"`
	ShowBadge      bool  `json:"show_badge"`
	Importance     int32 `json:"importance"`
	TotalBadgeNum  int32 `json:"total_badge_num"`
	PrivateAllowed bool  `json:"private_allowed"`
	PoppedDialog   bool  `json:"popped_dialog"`
}

func newBundleInfo(owner notify.BundleID) *BundleInfo {
	return &BundleInfo{
		Bundle:  owner,
		Slots:   map[notify.SlotType]notify.Slot{},
		Groups:  map[string]notify.SlotGroup{},
		Enabled: true,
	}
}

func (b *BundleInfo) clone() *BundleInfo {
	cp := *b
	cp.Slots = make(map[notify.SlotType]notify.Slot, len(b.Slots))
	for k, v := range b.Slots {
		cp.Slots[k] = v
	}
	cp.Groups = make(map[string]notify.SlotGroup, len(b.Groups))
	for k, v := range b.Groups {
		cp.Groups[k] = v
	}
	return &cp
}

// UserInfo is the persisted preference state of one user.
type UserInfo struct {
	UserID  int32                   `json:"user_id"`
	Enabled bool                    `json:"enabled"`
	DND     notify.DoNotDisturbDate `json:"dnd"`
}

// Store owns Slot/SlotGroup/DND state. The broker never mutates these
// structures directly, only through Store operations.
type Store struct {
	mu     sync.Mutex
	engine kvstore.Engine
	log    logx.Logger

	maxGroups int
	now       func() time.Time

	bundles map[string]*BundleInfo
	users   map[int32]*UserInfo

	engineAlive bool
	dirty       map[string]struct{} // engine keys pending flush
}

// Option tweaks Store construction.
type Option func(*Store)

// WithMaxSlotGroups overrides the per-bundle slot group cap.
func WithMaxSlotGroups(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxGroups = n
		}
	}
}

// WithClock injects a clock for DND projection tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the store and loads the persisted image from the engine.
// A load failure is not fatal: the store starts empty and logs the problem,
// matching the "no crash path" policy.
func New(engine kvstore.Engine, log logx.Logger, opts ...Option) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{
		engine:      engine,
		log:         log,
		maxGroups:   DefaultMaxSlotGroups,
		now:         time.Now,
		bundles:     map[string]*BundleInfo{},
		users:       map[int32]*UserInfo{},
		engineAlive: true,
		dirty:       map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.reload(); err != nil {
		s.log.Warn("preference image load failed, starting empty", logx.Err(err))
	}
	return s
}

// HandleEngineState reacts to the persistence engine's liveness signal.
// The broker submits this through its worker so it is serialized with every
// other preference mutation.
func (s *Store) HandleEngineState(alive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.engineAlive
	s.engineAlive = alive
	if !alive || was {
		return
	}

	// Reconnected: push what changed while the engine was away, then adopt
	// whatever the (possibly replicated) engine now holds.
	s.flushDirtyLocked()
	if err := s.reloadLocked(); err != nil {
		s.log.Warn("preference reload after reconnect failed", logx.Err(err))
	}
}

func (s *Store) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Store) reloadLocked() error {
	ctx := context.Background()

	pairs, err := s.engine.List(ctx, bundleKeyPrefix)
	if err != nil {
		return fmt.Errorf("list bundle preferences: %w", err)
	}
	bundles := make(map[string]*BundleInfo, len(pairs))
	for key, raw := range pairs {
		var info BundleInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			s.log.Warn("skipping undecodable bundle preference", logx.String("key", key), logx.Err(err))
			continue
		}
		if info.Slots == nil {
			info.Slots = map[notify.SlotType]notify.Slot{}
		}
		if info.Groups == nil {
			info.Groups = map[string]notify.SlotGroup{}
		}
		bundles[info.Bundle.String()] = &info
	}

	pairs, err = s.engine.List(ctx, userKeyPrefix)
	if err != nil {
		return fmt.Errorf("list user preferences: %w", err)
	}
	users := make(map[int32]*UserInfo, len(pairs))
	for key, raw := range pairs {
		var info UserInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			s.log.Warn("skipping undecodable user preference", logx.String("key", key), logx.Err(err))
			continue
		}
		users[info.UserID] = &info
	}

	s.bundles = bundles
	s.users = users
	return nil
}

func bundleKey(owner notify.BundleID) string {
	return bundleKeyPrefix + owner.Name + "_" + strconv.FormatInt(int64(owner.UID), 10)
}

func userKey(userID int32) string {
	return userKeyPrefix + strconv.FormatInt(int64(userID), 10)
}

// persistBundle writes info through to the engine, or queues it while the
// engine is dead. Returns notify.ErrStorage only for a live-engine failure.
func (s *Store) persistBundle(info *BundleInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("%w: %v", notify.ErrStorage, err)
	}
	return s.persistRaw(bundleKey(info.Bundle), string(raw))
}

func (s *Store) persistUser(info *UserInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("%w: %v", notify.ErrStorage, err)
	}
	return s.persistRaw(userKey(info.UserID), string(raw))
}

func (s *Store) persistRaw(key, value string) error {
	if !s.engineAlive {
		s.dirty[key] = struct{}{}
		return nil
	}
	if err := s.engine.Put(context.Background(), key, value); err != nil {
		return fmt.Errorf("%w: %v", notify.ErrStorage, err)
	}
	delete(s.dirty, key)
	return nil
}

func (s *Store) removeKey(key string) error {
	if !s.engineAlive {
		s.dirty[key] = struct{}{}
		return nil
	}
	if err := s.engine.Delete(context.Background(), key); err != nil {
		return fmt.Errorf("%w: %v", notify.ErrStorage, err)
	}
	delete(s.dirty, key)
	return nil
}

func (s *Store) flushDirtyLocked() {
	ctx := context.Background()
	for key := range s.dirty {
		value, ok := s.currentValueLocked(key)
		var err error
		if ok {
			err = s.engine.Put(ctx, key, value)
		} else {
			err = s.engine.Delete(ctx, key)
		}
		if err != nil {
			s.log.Warn("dirty preference flush failed", logx.String("key", key), logx.Err(err))
			continue
		}
		delete(s.dirty, key)
	}
}

func (s *Store) currentValueLocked(key string) (string, bool) {
	for _, info := range s.bundles {
		if bundleKey(info.Bundle) == key {
			raw, err := json.Marshal(info)
			if err != nil {
				return "", false
			}
			return string(raw), true
		}
	}
	for _, info := range s.users {
		if userKey(info.UserID) == key {
			raw, err := json.Marshal(info)
			if err != nil {
				return "", false
			}
			return string(raw), true
		}
	}
	return "", false
}

func (s *Store) bundleLocked(owner notify.BundleID) (*BundleInfo, error) {
	if !owner.IsValid() {
		return nil, notify.ErrInvalidParam
	}
	info, ok := s.bundles[owner.String()]
	if !ok {
		return nil, notify.ErrBundleNotConfigured
	}
	return info, nil
}

// RemoveBundle drops every preference stored for owner (package removed or
// bundle data cleared).
func (s *Store) RemoveBundle(owner notify.BundleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.bundleLocked(owner); err != nil {
		return err
	}
	if err := s.removeKey(bundleKey(owner)); err != nil {
		return err
	}
	delete(s.bundles, owner.String())
	return nil
}

// Clear wipes all persisted preference state (factory reset).
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	for _, info := range s.bundles {
		if err := s.engine.Delete(ctx, bundleKey(info.Bundle)); err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
			return fmt.Errorf("%w: %v", notify.ErrStorage, err)
		}
	}
	for _, info := range s.users {
		if err := s.engine.Delete(ctx, userKey(info.UserID)); err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
			return fmt.Errorf("%w: %v", notify.ErrStorage, err)
		}
	}
	s.bundles = map[string]*BundleInfo{}
	s.users = map[int32]*UserInfo{}
	s.dirty = map[string]struct{}{}
	return nil
}

// KnownUsers lists user ids with stored preferences, sorted for stable
// iteration (the sweeper walks this).
func (s *Store) KnownUsers() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int32, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
