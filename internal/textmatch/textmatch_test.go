package textmatch

import "testing"

func TestFold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "   ", expect: ""},
		{name: "lower", input: "Filipino", expect: "filipino"},
		{name: "trim", input: "  Cantonese ", expect: "cantonese"},
		{name: "full width", input: "ＥＮＧＬＩＳＨ", expect: "english"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Fold(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestOverlap(t *testing.T) {
	t.Parallel()

	score, matched, missing := Overlap([]string{"Chinese", "Western", "Indian"}, []string{"chinese cuisine", "WESTERN"})
	if score != 2.0/3.0 {
		t.Fatalf("expected 2/3 overlap, got %v", score)
	}
	if len(matched) != 2 || len(missing) != 1 || missing[0] != "Indian" {
		t.Fatalf("unexpected matched=%v missing=%v", matched, missing)
	}

	vacuous, _, _ := Overlap(nil, []string{"anything"})
	if vacuous != 1 {
		t.Fatalf("expected vacuous overlap to be 1, got %v", vacuous)
	}

	none, _, _ := Overlap([]string{"baking"}, nil)
	if none != 0 {
		t.Fatalf("expected zero overlap, got %v", none)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	if !Contains([]string{"Indonesian", "Filipino"}, " filipino") {
		t.Fatalf("expected case-insensitive match")
	}
	if Contains([]string{"Indonesian"}, "") {
		t.Fatalf("empty value must not match")
	}
}
