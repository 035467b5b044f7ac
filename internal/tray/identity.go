package tray

// IconIdentity is the durable key for a status icon: the owning
// application's class name plus the item title. It is the only icon
// reference that survives process restarts; live window handles are
// re-resolved from it on demand.
type IconIdentity struct {
	Namespace string `json:"namespace"`
	Title     string `json:"title"`
}

// ControlNamespace is the namespace of the synthetic control items
// (spacer, toggle, always-hidden anchor) this program owns. Control items
// appear in registry scans, since they are genuine strip windows and serve
// as move anchors, but are never captured as icons or persisted as layout
// entries.
const ControlNamespace = "traykeep"

// NewIdentity builds an identity from a class name and title, falling back
// to the owner's display name when the class is unavailable.
func NewIdentity(class, ownerName, title string) IconIdentity {
	ns := class
	if ns == "" {
		ns = ownerName
	}
	return IconIdentity{Namespace: ns, Title: title}
}

// IsZero reports whether the identity carries no information at all.
func (id IconIdentity) IsZero() bool {
	return id.Namespace == "" && id.Title == ""
}

func (id IconIdentity) String() string {
	if id.Title == "" {
		return id.Namespace
	}
	return id.Namespace + "/" + id.Title
}

// Identities of system-owned items that must never be dragged. Membership
// is an exact (namespace, title) match; an item that merely shares a
// namespace with one of these is still movable.
var immovable = map[IconIdentity]struct{}{
	{Namespace: "org.shell.Clock", Title: "Clock"}:                  {},
	{Namespace: "org.shell.Search", Title: "Search"}:                {},
	{Namespace: "org.shell.VoiceAssistant", Title: "Assistant"}:     {},
	{Namespace: "org.shell.ControlCenter", Title: "ControlCapsule"}: {},
}

// IsImmovable reports whether the identity belongs to the closed set of
// system-owned items the repositioner refuses to touch.
func IsImmovable(id IconIdentity) bool {
	_, ok := immovable[id]
	return ok
}
