package prefs

import (
	"sort"

	"notibroker/internal/notify"
)

// AddSlots creates or replaces slots for owner. The bundle entry is created
// lazily on first use. An empty slot list is rejected.
func (s *Store) AddSlots(owner notify.BundleID, slots []notify.Slot) error {
	if !owner.IsValid() || len(slots) == 0 {
		return notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.bundles[owner.String()]
	if !ok {
		info = newBundleInfo(owner)
	}
	next := info.clone()
	for _, slot := range slots {
		next.Slots[slot.Type] = slot
	}
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}

// GetSlot returns the slot of the given type.
func (s *Store) GetSlot(owner notify.BundleID, t notify.SlotType) (notify.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return notify.Slot{}, err
	}
	slot, ok := info.Slots[t]
	if !ok {
		return notify.Slot{}, notify.ErrSlotTypeNotConfigured
	}
	return slot, nil
}

// GetSlots returns every slot configured for owner, ordered by type.
func (s *Store) GetSlots(owner notify.BundleID) ([]notify.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return nil, err
	}
	out := make([]notify.Slot, 0, len(info.Slots))
	for _, slot := range info.Slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// UpdateSlots replaces existing slots. Unlike AddSlots it requires both the
// bundle and each slot type to be configured already.
func (s *Store) UpdateSlots(owner notify.BundleID, slots []notify.Slot) error {
	if !owner.IsValid() || len(slots) == 0 {
		return notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return err
	}
	next := info.clone()
	for _, slot := range slots {
		if _, ok := next.Slots[slot.Type]; !ok {
			return notify.ErrSlotTypeNotConfigured
		}
		next.Slots[slot.Type] = slot
	}
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}

// RemoveSlot deletes one slot type.
func (s *Store) RemoveSlot(owner notify.BundleID, t notify.SlotType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return err
	}
	if _, ok := info.Slots[t]; !ok {
		return notify.ErrSlotTypeNotConfigured
	}
	next := info.clone()
	delete(next.Slots, t)
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}

// RemoveAllSlots drops every slot while keeping the bundle's other settings.
func (s *Store) RemoveAllSlots(owner notify.BundleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return err
	}
	next := info.clone()
	next.Slots = map[notify.SlotType]notify.Slot{}
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}

// AddGroups creates slot groups, enforcing the per-bundle cap.
func (s *Store) AddGroups(owner notify.BundleID, groups []notify.SlotGroup) error {
	if !owner.IsValid() || len(groups) == 0 {
		return notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.bundles[owner.String()]
	if !ok {
		info = newBundleInfo(owner)
	}
	next := info.clone()
	for _, group := range groups {
		if group.ID == "" {
			return notify.ErrSlotGroupIDInvalid
		}
		if _, exists := next.Groups[group.ID]; !exists && len(next.Groups) >= s.maxGroups {
			return notify.ErrGroupCapacityExceeded
		}
		next.Groups[group.ID] = group
	}
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}

// GetGroup returns one slot group by id.
func (s *Store) GetGroup(owner notify.BundleID, groupID string) (notify.SlotGroup, error) {
	if groupID == "" {
		return notify.SlotGroup{}, notify.ErrSlotGroupIDInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return notify.SlotGroup{}, err
	}
	group, ok := info.Groups[groupID]
	if !ok {
		return notify.SlotGroup{}, notify.ErrSlotGroupNotFound
	}
	return group, nil
}

// GetGroups returns every slot group for owner, ordered by id.
func (s *Store) GetGroups(owner notify.BundleID) ([]notify.SlotGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return nil, err
	}
	out := make([]notify.SlotGroup, 0, len(info.Groups))
	for _, group := range info.Groups {
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateGroups replaces existing groups; each id must already exist.
func (s *Store) UpdateGroups(owner notify.BundleID, groups []notify.SlotGroup) error {
	if !owner.IsValid() || len(groups) == 0 {
		return notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return err
	}
	next := info.clone()
	for _, group := range groups {
		if group.ID == "" {
			return notify.ErrSlotGroupIDInvalid
		}
		if _, ok := next.Groups[group.ID]; !ok {
			return notify.ErrSlotGroupNotFound
		}
		next.Groups[group.ID] = group
	}
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}

// RemoveGroups deletes the listed group ids; all must exist.
func (s *Store) RemoveGroups(owner notify.BundleID, groupIDs []string) error {
	if !owner.IsValid() || len(groupIDs) == 0 {
		return notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.bundleLocked(owner)
	if err != nil {
		return err
	}
	next := info.clone()
	for _, id := range groupIDs {
		if _, ok := next.Groups[id]; !ok {
			return notify.ErrSlotGroupNotFound
		}
		delete(next.Groups, id)
	}
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}
