package facepool

import (
	"testing"
)

func enabledPool() (*Pool, Entry) {
	p := New(nil, nil)
	primary := p.Enable("/faces/primary.jpg")
	return p, primary
}

func TestEnableSeedsLockedEntry(t *testing.T) {
	p, primary := enabledPool()

	if !p.Enabled() {
		t.Fatal("pool should be enabled")
	}
	if !primary.Locked || primary.ID == "" {
		t.Errorf("primary entry malformed: %+v", primary)
	}
	if len(p.Entries()) != 1 {
		t.Errorf("expected exactly one entry, got %d", len(p.Entries()))
	}
}

func TestEnableDiscardsPreviousContents(t *testing.T) {
	p, _ := enabledPool()
	p.AddFromPaths([]string{"/faces/a.jpg"})

	p.Enable("/faces/other.jpg")
	entries := p.Entries()
	if len(entries) != 1 || entries[0].ImagePath != "/faces/other.jpg" {
		t.Errorf("re-enable must reseed the pool, got %+v", entries)
	}
}

func TestAddFromPathsFiltersAndDeduplicates(t *testing.T) {
	p, _ := enabledPool()

	added, rejected := p.AddFromPaths([]string{
		"/faces/a.jpg",
		"/faces/b.webp",
		"/faces/apple.heic",
		"/faces/doc.pdf",
		"/faces/a.jpg", // duplicate of the first
	})

	if len(added) != 2 {
		t.Fatalf("added %d entries, want 2", len(added))
	}
	if added[0].Locked || added[1].Locked {
		t.Error("user-added entries must be unlocked")
	}
	if added[0].ID == added[1].ID {
		t.Error("ids must be unique")
	}

	reasons := map[string]string{}
	for _, r := range rejected {
		reasons[r.Path] = r.Reason
	}
	if reasons["/faces/apple.heic"] != ReasonHEIC {
		t.Errorf("HEIC must get a distinct reason, got %q", reasons["/faces/apple.heic"])
	}
	if reasons["/faces/doc.pdf"] != ReasonUnsupported {
		t.Errorf("pdf reason = %q", reasons["/faces/doc.pdf"])
	}
	if reasons["/faces/a.jpg"] != ReasonDuplicate {
		t.Errorf("duplicate reason = %q", reasons["/faces/a.jpg"])
	}
}

func TestRemoveLockedIsNoOp(t *testing.T) {
	p, primary := enabledPool()

	if p.RemoveByID(primary.ID) {
		t.Error("removing the locked entry must be a no-op")
	}
	if len(p.Entries()) != 1 {
		t.Error("locked entry disappeared")
	}
}

func TestRemoveUnlockedClearsPin(t *testing.T) {
	p, _ := enabledPool()
	added, _ := p.AddFromPaths([]string{"/faces/a.jpg"})
	p.Pin(added[0].ID)

	if !p.RemoveByID(added[0].ID) {
		t.Fatal("expected removal")
	}
	if _, ok := p.Pinned(); ok {
		t.Error("pin must be cleared when the pinned entry is removed")
	}
}

func TestRenameLockedIsNoOp(t *testing.T) {
	p, primary := enabledPool()

	if p.Rename(primary.ID, "mom") {
		t.Error("renaming the locked entry must be a no-op")
	}

	added, _ := p.AddFromPaths([]string{"/faces/a.jpg"})
	if !p.Rename(added[0].ID, "mom") {
		t.Fatal("expected rename")
	}
	if p.Get(added[0].ID).Name != "mom" {
		t.Error("name not applied")
	}
}

func TestPinUnknownIDClears(t *testing.T) {
	p, _ := enabledPool()
	added, _ := p.AddFromPaths([]string{"/faces/a.jpg"})
	p.Pin(added[0].ID)

	p.Pin("nope")
	if _, ok := p.Pinned(); ok {
		t.Error("pinning an unknown id must clear the pin")
	}
}

func TestDisableEmptiesPool(t *testing.T) {
	p, _ := enabledPool()
	p.AddFromPaths([]string{"/faces/a.jpg"})

	p.Disable()
	if p.Enabled() || len(p.Entries()) != 0 {
		t.Error("disable must empty the pool")
	}
	if _, ok := p.Pinned(); ok {
		t.Error("disable must clear the pin")
	}
}

func TestRefs(t *testing.T) {
	p, primary := enabledPool()
	added, _ := p.AddFromPaths([]string{"/faces/a.jpg"})

	refs := p.Refs()
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].ID != primary.ID || refs[1].ID != added[0].ID {
		t.Error("refs must preserve insertion order")
	}
}
