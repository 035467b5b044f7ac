package tray

// Section is a logical zone of the tray strip, bounded by the separator
// items. The always-hidden section is optional and only exists when its
// anchor separator is configured.
type Section string

const (
	SectionVisible      Section = "visible"
	SectionHidden       Section = "hidden"
	SectionAlwaysHidden Section = "alwaysHidden"
)

// Valid reports whether s is one of the three known sections.
func (s Section) Valid() bool {
	switch s {
	case SectionVisible, SectionHidden, SectionAlwaysHidden:
		return true
	}
	return false
}

func (s Section) String() string {
	return string(s)
}

// Sections lists all sections in anchor order: the restorer processes
// them left to right so that not-yet-moved items cannot confuse a later
// move's zone classification.
func Sections() []Section {
	return []Section{SectionAlwaysHidden, SectionHidden, SectionVisible}
}
