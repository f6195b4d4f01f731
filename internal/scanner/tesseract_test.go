package scanner

import "testing"

func TestSplitRecognizedText(t *testing.T) {
	lines := splitRecognizedText("Blue-Eyes White Dragon\n\n  LOB-EN001  \n\nATK/3000 DEF/2500\n")
	expected := []string{"Blue-Eyes White Dragon", "LOB-EN001", "ATK/3000 DEF/2500"}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %v", len(expected), lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Fatalf("line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}
}

func TestSplitRecognizedTextEmpty(t *testing.T) {
	if lines := splitRecognizedText("\n \n"); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
