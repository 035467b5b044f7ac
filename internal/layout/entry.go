package layout

import (
	"sort"

	"github.com/google/uuid"

	"github.com/traykeep/traykeep/internal/tray"
)

// Entry kinds.
const (
	KindItem   = "item"
	KindSpacer = "spacer"
)

// Entry is the persisted unit of the tray layout: either a real status
// icon identified by (namespace, title), or a synthetic spacer. Spacers
// have no physical counterpart: never captured, never matched to a
// handle, always movable.
type Entry struct {
	Kind      string       `json:"kind"`
	Namespace string       `json:"namespace,omitempty"`
	Title     string       `json:"title,omitempty"`
	ID        string       `json:"id,omitempty"`
	Section   tray.Section `json:"section"`
	Order     int          `json:"order"`
}

// NewItem builds an item entry.
func NewItem(id tray.IconIdentity, section tray.Section, order int) Entry {
	return Entry{
		Kind:      KindItem,
		Namespace: id.Namespace,
		Title:     id.Title,
		Section:   section,
		Order:     order,
	}
}

// NewSpacer builds a spacer entry with a fresh stable id.
func NewSpacer(section tray.Section, order int) Entry {
	return Entry{
		Kind:    KindSpacer,
		ID:      uuid.NewString(),
		Section: section,
		Order:   order,
	}
}

// IsSpacer reports whether the entry is synthetic.
func (e Entry) IsSpacer() bool {
	return e.Kind == KindSpacer
}

// Identity returns the durable identity for item entries; zero for
// spacers.
func (e Entry) Identity() tray.IconIdentity {
	if e.IsSpacer() {
		return tray.IconIdentity{}
	}
	return tray.IconIdentity{Namespace: e.Namespace, Title: e.Title}
}

// Normalize re-numbers Order to be dense and sequential (0..n-1) within
// each section, preserving the existing relative order. The input slice
// is sorted in place by (section anchor order, order).
func Normalize(entries []Entry) {
	rank := map[tray.Section]int{
		tray.SectionAlwaysHidden: 0,
		tray.SectionHidden:       1,
		tray.SectionVisible:      2,
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Section != entries[j].Section {
			return rank[entries[i].Section] < rank[entries[j].Section]
		}
		return entries[i].Order < entries[j].Order
	})

	counters := make(map[tray.Section]int, 3)
	for i := range entries {
		entries[i].Order = counters[entries[i].Section]
		counters[entries[i].Section]++
	}
}

// BySection filters entries to one section, ordered.
func BySection(entries []Entry, section tray.Section) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Section == section {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
