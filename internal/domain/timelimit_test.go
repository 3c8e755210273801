package domain

import (
	"math"
	"testing"
	"time"
)

func TestFormatSeconds(t *testing.T) {
	cases := map[int]string{
		90:  "1 min 30 sec",
		45:  "45 sec",
		60:  "1 min",
		0:   "0 sec",
		300: "5 min",
		-5:  "0 sec",
	}
	for in, want := range cases {
		if got := FormatSeconds(in); got != want {
			t.Fatalf("FormatSeconds(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDurationTruncates(t *testing.T) {
	if got := FormatDuration(61*time.Second + 900*time.Millisecond); got != "1 min 1 sec" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestPresetsAreValid(t *testing.T) {
	for _, p := range TimeLimitPresets {
		if !ValidTimeLimit(p) {
			t.Fatalf("preset %d rejected", p)
		}
	}
	if ValidTimeLimit(0) {
		t.Fatalf("zero limit accepted")
	}
	if !ValidTimeLimit(75) || !ValidTimeLimit(MaxTimeLimit) {
		t.Fatalf("custom limit rejected")
	}
	if ValidTimeLimit(MaxTimeLimit+1) || ValidTimeLimit(math.MaxInt) {
		t.Fatalf("oversized limit accepted")
	}
}

func TestOptionLetters(t *testing.T) {
	if OptionLetter(0) != "A" || OptionLetter(9) != "J" || OptionLetter(10) != "?" {
		t.Fatalf("unexpected letters")
	}
	q := Question{Options: []Option{{ID: "a", Order: 0}, {ID: "b", Order: 1, Correct: true}}}
	opt, ok := q.CorrectOption()
	if !ok || opt.Letter() != "B" {
		t.Fatalf("expected B correct, got %+v", opt)
	}
}
