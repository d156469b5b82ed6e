package srs

import (
	"testing"
	"time"
)

func TestNextSuccessfulProgression(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := Next(QualityPerfect, 2.5, 0, 0, now)
	if first.IntervalDays != 1 {
		t.Errorf("first review interval = %v, want 1", first.IntervalDays)
	}
	if first.TimesReviewed != 1 {
		t.Errorf("first review reps = %d, want 1", first.TimesReviewed)
	}
	if first.EaseFactor != 2.6 {
		t.Errorf("first review ease = %v, want 2.6", first.EaseFactor)
	}
	if !first.NextReviewDate.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("first review date = %v", first.NextReviewDate)
	}

	second := Next(QualityPerfect, first.EaseFactor, first.IntervalDays, first.TimesReviewed, now)
	if second.IntervalDays != 6 {
		t.Errorf("second review interval = %v, want 6", second.IntervalDays)
	}

	third := Next(QualityHesitant, second.EaseFactor, second.IntervalDays, second.TimesReviewed, now)
	if third.IntervalDays <= second.IntervalDays {
		t.Errorf("third review interval = %v, want growth past %v", third.IntervalDays, second.IntervalDays)
	}
	if third.TimesReviewed != 3 {
		t.Errorf("third review reps = %d, want 3", third.TimesReviewed)
	}
}

func TestNextFailureResets(t *testing.T) {
	now := time.Now()
	got := Next(QualityRecalled, 2.8, 30, 7, now)
	if got.IntervalDays != 0 {
		t.Errorf("failed recall interval = %v, want 0", got.IntervalDays)
	}
	if got.TimesReviewed != 0 {
		t.Errorf("failed recall reps = %d, want 0", got.TimesReviewed)
	}
	if got.EaseFactor >= 2.8 {
		t.Errorf("failed recall ease = %v, want reduced below 2.8", got.EaseFactor)
	}
}

func TestNextEaseFloor(t *testing.T) {
	got := Next(QualityBlackout, 1.3, 0, 0, time.Now())
	if got.EaseFactor != 1.3 {
		t.Errorf("ease = %v, want floor 1.3", got.EaseFactor)
	}
}

func TestNextZeroEaseDefaults(t *testing.T) {
	got := Next(QualityPerfect, 0, 0, 0, time.Now())
	if got.EaseFactor != 2.6 {
		t.Errorf("ease = %v, want 2.6 from default 2.5", got.EaseFactor)
	}
}

func TestQualityFromVerdict(t *testing.T) {
	tests := []struct {
		verdict string
		want    int
	}{
		{"correct", QualityPerfect},
		{"Correct", QualityPerfect},
		{"partial", QualityHard},
		{"incorrect", QualityRecalled},
		{"garbage", QualityRecalled},
		{"", QualityRecalled},
	}
	for _, tt := range tests {
		if got := QualityFromVerdict(tt.verdict); got != tt.want {
			t.Errorf("QualityFromVerdict(%q) = %d, want %d", tt.verdict, got, tt.want)
		}
	}
}

func TestMastery(t *testing.T) {
	if got := Mastery(1.3, 0); got != 0 {
		t.Errorf("Mastery(1.3, 0) = %v, want 0", got)
	}
	if got := Mastery(5.7, 180); got != 1 {
		t.Errorf("Mastery(5.7, 180) = %v, want 1 (both halves capped)", got)
	}
	mid := Mastery(2.5, 30)
	if mid <= 0 || mid >= 1 {
		t.Errorf("Mastery(2.5, 30) = %v, want strictly between 0 and 1", mid)
	}
}
