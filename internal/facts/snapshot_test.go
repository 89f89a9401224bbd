package facts

import "testing"

func TestSnapshotRoundtrip(t *testing.T) {
	l, db := newTestLog(t)

	appendFacts(t, l, db, []Fact{
		testFact(0x01, 1),
		testFact(0x02, 2),
		{Kind: KindSwapExecuted, SwapID: 1},
	})

	data, err := Export(l)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	fs, err := Import(data)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if len(fs) != 3 {
		t.Fatalf("expected 3 facts, got %d", len(fs))
	}

	for i, f := range fs {
		if f.Seq != uint64(i+1) {
			t.Errorf("fact %d has sequence %d", i, f.Seq)
		}
	}

	// The imported facts replay into a consistent view
	v := NewView()
	if err := v.ApplyAll(fs); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if v.Next() != 4 {
		t.Errorf("view expected next 4, got %d", v.Next())
	}
}

func TestSnapshotChecksum(t *testing.T) {
	l, db := newTestLog(t)
	appendFacts(t, l, db, []Fact{testFact(0x01, 1)})

	data, err := Export(l)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Flip a checksum bit
	data[0] ^= 0xFF

	if _, err := Import(data); err == nil {
		t.Error("expected checksum mismatch")
	}
}

func TestSnapshotTooShort(t *testing.T) {
	if _, err := Import([]byte("short")); err == nil {
		t.Error("expected error for truncated snapshot")
	}
}

func TestSnapshotEmptyLog(t *testing.T) {
	l, _ := newTestLog(t)

	data, err := Export(l)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	fs, err := Import(data)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if len(fs) != 0 {
		t.Errorf("expected no facts, got %d", len(fs))
	}
}
