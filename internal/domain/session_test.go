package domain

import (
	"testing"
	"time"
)

func TestSessionChooseLocation(t *testing.T) {
	tests := []struct {
		name          string
		collectRating bool
		want          Stage
	}{
		{name: "with rating", collectRating: true, want: StageAwaitingRating},
		{name: "without rating", collectRating: false, want: StageAwaitingComment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(42, "flow", time.Now())
			s.ChooseLocation("location2", tt.collectRating)
			if s.Stage != tt.want {
				t.Fatalf("stage = %s, want %s", s.Stage, tt.want)
			}
			if s.LocationID != "location2" {
				t.Fatalf("location = %q, want location2", s.LocationID)
			}
			if s.Rating != nil {
				t.Fatalf("rating must stay empty, got %d", *s.Rating)
			}
		})
	}
}

func TestSessionChooseRating(t *testing.T) {
	for r := MinRating; r <= MaxRating; r++ {
		s := NewSession(1, "flow", time.Now())
		s.ChooseLocation("location1", true)
		s.ChooseRating(r)
		if s.Rating == nil || *s.Rating != r {
			t.Fatalf("ожидали оценку %d, получили %v", r, s.Rating)
		}
		if s.Stage != StageAwaitingComment {
			t.Fatalf("ожидали шаг комментария, получили %s", s.Stage)
		}
	}
}

func TestValidRating(t *testing.T) {
	cases := map[int]bool{0: false, 1: true, 3: true, 5: true, 6: false, -1: false}
	for input, want := range cases {
		if got := ValidRating(input); got != want {
			t.Fatalf("ValidRating(%d) = %v, want %v", input, got, want)
		}
	}
}

func TestStageValid(t *testing.T) {
	if !StageAwaitingComment.Valid() {
		t.Fatal("awaiting_comment must be valid")
	}
	if Stage("done").Valid() {
		t.Fatal("unknown stage must be invalid")
	}
}
