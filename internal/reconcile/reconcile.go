package reconcile

import (
	"image"
	"sort"

	"github.com/traykeep/traykeep/internal/capture"
	"github.com/traykeep/traykeep/internal/layout"
	"github.com/traykeep/traykeep/internal/tray"
)

// Result is a reconciled canonical layout plus the short-lived caches
// that let an immediately-following operation (an interactive move right
// after a refresh) skip re-matching. The handle cache is valid only until
// the next registry-mutating event.
type Result struct {
	Items     []layout.Entry
	Images    map[tray.IconIdentity]image.Image
	Handles   map[tray.IconIdentity]tray.HandleRef
	Overrides int
	New       int
}

// Reconcile merges a fresh capture with the persisted layout. The capture
// is authoritative for on-screen order and default section; the persisted
// layout is authoritative only for explicit user overrides (a persisted
// section differing from the captured one). Pure function of its inputs.
func Reconcile(cap *capture.Result, persisted []layout.Entry) Result {
	res := Result{
		Images:  make(map[tray.IconIdentity]image.Image),
		Handles: make(map[tray.IconIdentity]tray.HandleRef),
	}

	// Ascending X is the ground truth for left-to-right order. Two icons
	// can report the same X mid-reflow; the handle reference breaks the
	// tie deterministically.
	icons := make([]capture.Icon, 0, len(cap.Icons))
	for _, icon := range cap.Icons {
		if icon.Handle == nil {
			continue
		}
		icons = append(icons, icon)
	}
	sort.SliceStable(icons, func(i, j int) bool {
		if icons[i].Frame.X != icons[j].Frame.X {
			return icons[i].Frame.X < icons[j].Frame.X
		}
		return icons[i].Handle.Ref < icons[j].Handle.Ref
	})

	byIdentity := make(map[tray.IconIdentity]layout.Entry, len(persisted))
	for _, e := range persisted {
		if e.IsSpacer() {
			continue
		}
		byIdentity[e.Identity()] = e
	}

	counters := make(map[tray.Section]int, 3)
	for _, icon := range icons {
		identity := icon.Handle.Identity()

		prev, matched := byIdentity[identity]
		if !matched {
			// Fall back to an owner-name match for identities whose
			// class was unavailable when they were persisted.
			ownerKey := tray.IconIdentity{Namespace: icon.Handle.OwnerName, Title: icon.Handle.Title}
			prev, matched = byIdentity[ownerKey]
		}

		section := icon.Section
		if matched && prev.Section != icon.Section {
			// The user explicitly parked this icon elsewhere; the
			// persisted section wins over the captured one.
			section = prev.Section
			res.Overrides++
		}
		if !matched {
			res.New++
		}

		entry := layout.NewItem(identity, section, counters[section])
		counters[section]++
		res.Items = append(res.Items, entry)

		res.Images[identity] = icon.Image
		res.Handles[identity] = icon.Handle.Ref
	}

	// Spacers have no physical counterpart: copy them forward verbatim,
	// re-anchored at their persisted position within the section.
	for _, e := range persisted {
		if !e.IsSpacer() {
			continue
		}
		res.Items = insertSpacer(res.Items, e)
	}

	layout.Normalize(res.Items)
	return res
}

// insertSpacer places a persisted spacer back into its section at its
// persisted order, clamped to the section's current length.
func insertSpacer(items []layout.Entry, spacer layout.Entry) []layout.Entry {
	sectionLen := 0
	for _, e := range items {
		if e.Section == spacer.Section {
			sectionLen++
		}
	}
	if spacer.Order > sectionLen {
		spacer.Order = sectionLen
	}

	// Shift trailing entries so Normalize keeps the spacer in place.
	out := make([]layout.Entry, 0, len(items)+1)
	for _, e := range items {
		if e.Section == spacer.Section && e.Order >= spacer.Order {
			e.Order++
		}
		out = append(out, e)
	}
	return append(out, spacer)
}
