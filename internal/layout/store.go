package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/traykeep/traykeep/internal/tray"
)

// Document is the whole persisted layout. menuBarLayout is the rich,
// section-annotated entry list the settings editor works on;
// iconPositions is the simpler order-only projection the position
// restorer replays at launch.
type Document struct {
	MenuBarLayout []Entry                              `json:"menuBarLayout"`
	IconPositions map[tray.Section][]tray.IconIdentity `json:"iconPositions,omitempty"`
}

// RebuildPositions regenerates the iconPositions projection from the
// entry list. Spacers are excluded; they cannot be replayed.
func (d *Document) RebuildPositions() {
	positions := make(map[tray.Section][]tray.IconIdentity)
	for _, section := range tray.Sections() {
		for _, e := range BySection(d.MenuBarLayout, section) {
			if e.IsSpacer() {
				continue
			}
			positions[section] = append(positions[section], e.Identity())
		}
	}
	d.IconPositions = positions
}

// Store persists the layout document as a single JSON file. Writes are
// serialized and always replace the whole document; there is no
// patch-in-place path, so a crashed writer can never leave an interleaved
// partial update behind.
type Store struct {
	mu   sync.Mutex
	path string
}

// DefaultPath returns the standard layout file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "traykeep", "layout.json"), nil
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted document. A missing file yields an empty
// document, not an error: first launch has nothing persisted yet.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	return &doc, nil
}

// Save writes the whole document, creating the config directory if
// needed.
func (s *Store) Save(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("layout document is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write layout: %w", err)
	}
	return nil
}
