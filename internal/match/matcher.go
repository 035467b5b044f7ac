package match

import (
	"log/slog"

	"github.com/traykeep/traykeep/internal/layout"
	"github.com/traykeep/traykeep/internal/platform"
	"github.com/traykeep/traykeep/internal/tray"
)

// Method reports which resolution tier produced a match. Callers log it
// for diagnostics but never branch on it beyond this lookup.
type Method string

const (
	MethodCacheHit      Method = "cacheHit"
	MethodExact         Method = "exact"
	MethodNamespaceOnly Method = "namespaceOnly"
	MethodOwnerName     Method = "ownerName"
	MethodSpacer        Method = "spacer"
	MethodNotFound      Method = "notFound"
)

// Match is the outcome of resolving a persisted entry to a live handle.
// Handle is nil for spacers and for unresolvable identities.
type Match struct {
	Handle *tray.Handle
	Method Method
}

// Matcher resolves durable identities back to ephemeral window handles
// through descending-confidence tiers.
type Matcher struct {
	registry platform.Registry
	logger   *slog.Logger
}

// NewMatcher creates a matcher over the given registry.
func NewMatcher(registry platform.Registry, logger *slog.Logger) *Matcher {
	return &Matcher{registry: registry, logger: logger}
}

// Find resolves entry against the live registry. live may carry a
// pre-fetched registry snapshot; pass nil to query fresh. The cache maps
// identity to a handle reference from an earlier reconciliation pass;
// cached references are re-validated against the live list, never
// trusted blind.
func (m *Matcher) Find(entry layout.Entry, cache map[tray.IconIdentity]tray.HandleRef, live []tray.Handle) Match {
	if entry.IsSpacer() {
		return Match{Method: MethodSpacer}
	}

	if live == nil {
		var err error
		live, err = m.registry.List()
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("registry scan failed during match", "error", err)
			}
			return Match{Method: MethodNotFound}
		}
	}

	identity := entry.Identity()

	// Tier 1: cached handle, re-validated. A stale cache entry is
	// silently discarded and resolution falls through to scanning.
	if ref, ok := cache[identity]; ok {
		for i := range live {
			if live[i].Ref == ref {
				return Match{Handle: &live[i], Method: MethodCacheHit}
			}
		}
	}

	// Tier 2: exact namespace + title.
	for i := range live {
		if live[i].Class == identity.Namespace && live[i].Title == identity.Title {
			return Match{Handle: &live[i], Method: MethodExact}
		}
	}

	// Tier 3: namespace only. Covers items whose title changes
	// dynamically (counters, clocks, meters).
	for i := range live {
		if live[i].Class != "" && live[i].Class == identity.Namespace {
			return Match{Handle: &live[i], Method: MethodNamespaceOnly}
		}
	}

	// Tier 4: owner display name, for identities persisted without a
	// proper namespace.
	for i := range live {
		if live[i].OwnerName != "" && live[i].OwnerName == identity.Namespace {
			return Match{Handle: &live[i], Method: MethodOwnerName}
		}
	}

	return Match{Method: MethodNotFound}
}

// FindIdentity is a convenience wrapper for callers that hold a bare
// identity rather than a layout entry.
func (m *Matcher) FindIdentity(id tray.IconIdentity, cache map[tray.IconIdentity]tray.HandleRef, live []tray.Handle) Match {
	return m.Find(layout.NewItem(id, tray.SectionVisible, 0), cache, live)
}
