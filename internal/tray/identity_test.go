package tray

import "testing"

func TestNewIdentity_FallsBackToOwnerName(t *testing.T) {
	tests := []struct {
		name      string
		class     string
		ownerName string
		title     string
		want      IconIdentity
	}{
		{"class preferred", "com.example.app", "Example", "Item", IconIdentity{"com.example.app", "Item"}},
		{"owner fallback", "", "Example", "Item", IconIdentity{"Example", "Item"}},
		{"both empty", "", "", "Item", IconIdentity{"", "Item"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewIdentity(tt.class, tt.ownerName, tt.title)
			if got != tt.want {
				t.Errorf("NewIdentity(%q, %q, %q) = %v, want %v",
					tt.class, tt.ownerName, tt.title, got, tt.want)
			}
		})
	}
}

func TestIsImmovable_ExactMatchOnly(t *testing.T) {
	for id := range immovable {
		if !IsImmovable(id) {
			t.Errorf("IsImmovable(%v) = false, want true", id)
		}
	}

	// Sharing a namespace with an immovable item is not enough.
	if IsImmovable(IconIdentity{Namespace: "org.shell.Clock", Title: ""}) {
		t.Error("empty-title identity with immovable namespace should be movable")
	}
	if IsImmovable(IconIdentity{Namespace: "org.shell.Clock", Title: "Other"}) {
		t.Error("different-title identity with immovable namespace should be movable")
	}
	if IsImmovable(IconIdentity{Namespace: "com.example.app", Title: "Clock"}) {
		t.Error("arbitrary namespace should be movable")
	}
}

func TestHandleIdentity(t *testing.T) {
	h := Handle{Ref: 42, Class: "com.example.app", OwnerName: "Example", Title: "Status"}
	if got := h.Identity(); got != (IconIdentity{"com.example.app", "Status"}) {
		t.Errorf("Identity() = %v", got)
	}

	h.Class = ""
	if got := h.Identity(); got != (IconIdentity{"Example", "Status"}) {
		t.Errorf("Identity() with empty class = %v", got)
	}

	if !h.HasMetadata() {
		t.Error("HasMetadata() = false with owner name set")
	}
	h.OwnerName = ""
	if h.HasMetadata() {
		t.Error("HasMetadata() = true with no class or owner name")
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 10, Y: 0, Width: 20, Height: 24}
	b := Rect{X: 50, Y: 2, Width: 30, Height: 20}
	got := a.Union(b)
	want := Rect{X: 10, Y: 0, Width: 70, Height: 24}
	if got != want {
		t.Errorf("Union = %+v, want %+v", got, want)
	}

	var zero Rect
	if got := zero.Union(b); got != b {
		t.Errorf("zero.Union(b) = %+v, want %+v", got, b)
	}
}
