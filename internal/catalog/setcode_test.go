package catalog_test

import (
	"testing"

	"cardkeep/internal/catalog"
)

func TestParseSetCode(t *testing.T) {
	cases := []struct {
		input  string
		prefix string
		region string
		number string
		ok     bool
	}{
		{"LOB-EN001", "LOB", "EN", "001", true},
		{"lob-en001", "LOB", "EN", "001", true},
		{"MRD-DE001", "MRD", "DE", "001", true},
		{"LOB-001", "LOB", "", "001", true},
		{"SDK-E001", "SDK", "E", "001", true},
		{"not a code", "", "", "", false},
		{"", "", "", "", false},
	}

	for _, tc := range cases {
		parts, ok := catalog.ParseSetCode(tc.input)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.input, tc.ok, ok)
		}
		if !ok {
			continue
		}
		if parts.Prefix != tc.prefix || parts.Region != tc.region || parts.Number != tc.number {
			t.Fatalf("%q: got %+v", tc.input, parts)
		}
	}
}

func TestNormalizeSetCodeStripsRegion(t *testing.T) {
	cases := map[string]string{
		"LOB-EN001": "LOB-001",
		"MRD-DE001": "MRD-001",
		"LOB-001":   "LOB-001",
		"garbage":   "GARBAGE",
	}
	for input, expected := range cases {
		if got := catalog.NormalizeSetCode(input); got != expected {
			t.Fatalf("NormalizeSetCode(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestCorrectSetCodeGeneratesConfusionAlternates(t *testing.T) {
	alternates := catalog.CorrectSetCode("L0B-EN001")
	if len(alternates) == 0 || alternates[0] != "L0B-EN001" {
		t.Fatalf("expected original reading first, got %v", alternates)
	}
	found := false
	for _, code := range alternates {
		if code == "LOB-EN001" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected LOB-EN001 among alternates, got %v", alternates)
	}
}

func TestCorrectSetCodeSkipsInvalidAlternates(t *testing.T) {
	for _, code := range catalog.CorrectSetCode("LOB-EN001")[1:] {
		if _, ok := catalog.ParseSetCode(code); !ok {
			t.Fatalf("alternate %q does not parse", code)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Blue-Eyes White Dragon": "blueeyeswhitedragon",
		"Pot of Greed!":          "potofgreed",
		"  ":                     "",
		"Fire & Ice":             "fireandice",
	}
	for input, expected := range cases {
		if got := catalog.NormalizeName(input); got != expected {
			t.Fatalf("NormalizeName(%q) = %q, expected %q", input, got, expected)
		}
	}
}
