package similarity

import (
	"math"
	"testing"
)

func TestScoreIdentity(t *testing.T) {
	texts := []string{
		"blue water bottle",
		"Blue Water Bottle!",
		"AirPods Pro (2nd gen), left near library",
		"x",
	}
	for _, s := range texts {
		if got := Score(s, s); got != 1 {
			t.Errorf("Score(%q, %q) = %v, want 1", s, s, got)
		}
	}
}

func TestScoreSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"blue water bottle", "water bottle, blue"},
		{"black leather wallet", "brown canvas bag"},
		{"keys on a red lanyard", "red lanyard with keys"},
		{"", "anything"},
	}
	for _, p := range pairs {
		ab := Score(p[0], p[1])
		ba := Score(p[1], p[0])
		if ab != ba {
			t.Errorf("Score(%q, %q) = %v but Score(%q, %q) = %v", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestScoreEmpty(t *testing.T) {
	for _, s := range []string{"", "   ", "...!!!", "blue bottle"} {
		if got := Score("", s); got != 0 {
			t.Errorf("Score(\"\", %q) = %v, want 0", s, got)
		}
	}
}

func TestScoreRange(t *testing.T) {
	pairs := [][2]string{
		{"blue water bottle", "blue bottle"},
		{"lost my phone", "found a phone"},
		{"a b c d", "c d e f"},
	}
	for _, p := range pairs {
		got := Score(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Score(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestScoreCaseAndPunctuation(t *testing.T) {
	a := "Blue Water Bottle"
	b := "blue, water... BOTTLE!!"
	if got := Score(a, b); got != 1 {
		t.Errorf("Score(%q, %q) = %v, want 1 (normalization should erase case/punctuation)", a, b, got)
	}
}

func TestScorePartialOverlap(t *testing.T) {
	// Sets {blue, water, bottle} and {blue, bottle}: Dice = 2*2/(3+2) = 0.8.
	got := Score("blue water bottle", "blue bottle")
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Score = %v, want 0.8", got)
	}

	// Disjoint sets score 0.
	if got := Score("black wallet", "red umbrella"); got != 0 {
		t.Errorf("disjoint Score = %v, want 0", got)
	}
}
