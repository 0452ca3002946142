package pattern

import "testing"

func notesOf(h *Held) []int {
	var out []int
	for _, n := range h.Notes() {
		out = append(out, n.Note)
	}
	return out
}

func TestLatchOffRemovesOnRelease(t *testing.T) {
	var h Held
	h.Press(60, 1, LatchOff)
	h.Press(64, 1, LatchOff)
	h.Release(60, LatchOff)
	if got := notesOf(&h); len(got) != 1 || got[0] != 64 {
		t.Fatalf("held = %v", got)
	}
}

func TestPressOrderPreserved(t *testing.T) {
	var h Held
	for _, n := range []int{67, 60, 64} {
		h.Press(n, 1, LatchOff)
	}
	ns := h.Notes()
	for i := 1; i < len(ns); i++ {
		if ns[i].Order <= ns[i-1].Order {
			t.Fatalf("order not increasing: %+v", ns)
		}
	}
	if ns[0].Note != 67 {
		t.Fatalf("first pressed should come first: %+v", ns)
	}
}

func TestLatchHoldKeepsLastSet(t *testing.T) {
	var h Held
	h.Press(60, 1, LatchHold)
	h.Press(64, 1, LatchHold)
	h.Release(60, LatchHold)
	h.Release(64, LatchHold)
	if h.Len() != 2 || h.Down() != 0 {
		t.Fatalf("hold should retain both notes, len=%d down=%d", h.Len(), h.Down())
	}
	h.Press(67, 1, LatchHold)
	if got := notesOf(&h); len(got) != 1 || got[0] != 67 {
		t.Fatalf("a fresh press after full release should replace the set, got %v", got)
	}
}

func TestLatchAddMerges(t *testing.T) {
	var h Held
	h.Press(60, 1, LatchAdd)
	h.Release(60, LatchAdd)
	h.Press(64, 1, LatchAdd)
	h.Release(64, LatchAdd)
	if got := notesOf(&h); len(got) != 2 {
		t.Fatalf("add should merge, got %v", got)
	}
	h.Clear()
	if h.Len() != 0 {
		t.Fatal("clear should empty the set")
	}
}

func TestUnlatchDropsReleasedNotes(t *testing.T) {
	var h Held
	h.Press(60, 1, LatchAdd)
	h.Press(64, 1, LatchAdd)
	h.Release(60, LatchAdd)
	h.Unlatch()
	if got := notesOf(&h); len(got) != 1 || got[0] != 64 {
		t.Fatalf("held = %v", got)
	}
}

func TestCapacity(t *testing.T) {
	var h Held
	for i := 0; i < MaxHeld; i++ {
		if !h.Press(40+i, 1, LatchOff) {
			t.Fatalf("press %d rejected", i)
		}
	}
	if h.Press(100, 1, LatchOff) {
		t.Fatal("press beyond capacity should be rejected")
	}
	if !h.Press(40, 0.5, LatchOff) {
		t.Fatal("re-pressing a member should refresh it")
	}
	if h.Notes()[0].Velocity != 0.5 {
		t.Fatal("velocity not refreshed")
	}
}
