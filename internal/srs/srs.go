// Package srs schedules vocabulary reviews with the SM-2 spaced
// repetition algorithm.
package srs

import (
	"math"
	"strings"
	"time"
)

// Quality ratings follow the SM-2 0-5 scale: below 3 is a failed
// recall, 5 is perfect recall.
const (
	QualityBlackout = 0
	QualityRecalled = 1
	QualityNearMiss = 2
	QualityHard     = 3
	QualityHesitant = 4
	QualityPerfect  = 5
)

const (
	minEaseFactor = 1.3
	defaultEase   = 2.5
)

// Review is the scheduling state carried on a vocabulary card.
type Review struct {
	EaseFactor     float64
	IntervalDays   float64
	TimesReviewed  int
	NextReviewDate time.Time
}

// Next applies one SM-2 review at time now. A quality below 3 resets
// the interval and repetition count; successful recalls grow the
// interval by the ease factor after the first two fixed steps.
func Next(quality int, easeFactor, intervalDays float64, timesReviewed int, now time.Time) Review {
	if easeFactor <= 0 {
		easeFactor = defaultEase
	}

	q := float64(quality)
	ease := easeFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < minEaseFactor {
		ease = minEaseFactor
	}

	var interval float64
	reps := 0
	if quality >= 3 {
		switch timesReviewed {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			interval = intervalDays * ease
		}
		reps = timesReviewed + 1
	}

	return Review{
		EaseFactor:     round2(ease),
		IntervalDays:   round2(interval),
		TimesReviewed:  reps,
		NextReviewDate: now.Add(time.Duration(interval * 24 * float64(time.Hour))),
	}
}

// QualityFromVerdict maps a grading verdict to an SM-2 rating. Unknown
// verdicts count as incorrect.
func QualityFromVerdict(verdict string) int {
	switch strings.ToLower(verdict) {
	case "correct":
		return QualityPerfect
	case "partial":
		return QualityHard
	default:
		return QualityRecalled
	}
}

// Mastery derives a 0-1 score from the scheduling state. Ease in the
// 1.3 to 3.5 range contributes up to 0.5, interval up to 180 days
// contributes the other half.
func Mastery(easeFactor, intervalDays float64) float64 {
	easeScore := math.Min(0.5, (easeFactor-minEaseFactor)/4.4)
	intervalScore := math.Min(0.5, intervalDays/360)
	return round2(easeScore + intervalScore)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
