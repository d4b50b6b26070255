package defaults

import (
	"math"
	"testing"
)

func TestClamp01(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  float64
		expect float64
	}{
		{name: "negative", input: -0.3, expect: 0},
		{name: "inside", input: 0.42, expect: 0.42},
		{name: "above", input: 10, expect: 1},
		{name: "nan", input: math.NaN(), expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Clamp01(tt.input); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	if got := Ratio(5, 20); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if got := Ratio(30, 20); got != 1 {
		t.Fatalf("expected cap at 1, got %v", got)
	}
	if got := Ratio(3, 0); got != 0 {
		t.Fatalf("expected 0 for empty ceiling, got %v", got)
	}
}

func TestNeutralValuesAreBounded(t *testing.T) {
	t.Parallel()

	values := []float64{
		Neutral.UnknownAgeScore, Neutral.UnknownEducation, Neutral.MissingLevel,
		Neutral.UnknownProficiency, Neutral.UnknownAccommodation, Neutral.UnknownActivity,
		Neutral.NoReviews, Neutral.UnknownCompleteness, Neutral.UnknownNationality, Neutral.UnknownReligion, Neutral.UnknownOffDays,
	}
	for i, v := range values {
		if v < 0 || v > 1 {
			t.Fatalf("neutral value #%d out of range: %v", i, v)
		}
	}
}
