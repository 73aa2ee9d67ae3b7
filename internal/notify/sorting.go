package notify

// Sorting is one entry of a SortingMap: a live record's key, its rank in the
// registry's creation-time order, and the slot it resolved to.
type Sorting struct {
	Key     RecordKey `json:"key"`
	Ranking int       `json:"ranking"`
	Slot    *Slot     `json:"slot,omitempty"`
}

// SortingMap is the registry's ranking as of one event. It is regenerated
// after every admission, update or removal and shipped with each fan-out so
// subscribers always see the ordering that produced the event.
type SortingMap struct {
	Sortings []Sorting `json:"sortings"`
}

// RankOf returns the rank of key, or -1 when the key is not live.
func (m *SortingMap) RankOf(key RecordKey) int {
	if m == nil {
		return -1
	}
	for _, s := range m.Sortings {
		if s.Key == key {
			return s.Ranking
		}
	}
	return -1
}

func (m *SortingMap) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Sortings)
}
