// Package classify resolves decode and similarity evidence into a slot status.
package classify

import (
	"shadowboard/internal/payload"
	"shadowboard/internal/similarity"
)

// Status is the closed set of slot outcomes.
type Status string

const (
	// StatusItemPresent: the tool is (assumed) in place.
	StatusItemPresent Status = "ITEM_PRESENT"
	// StatusEmpty: the slot's own marker is visible or the region matches
	// the empty baseline, so the tool is missing.
	StatusEmpty Status = "EMPTY"
	// StatusCheckedOut: a worker badge sits in the slot; deliberate removal.
	StatusCheckedOut Status = "CHECKED_OUT"
	// StatusWrongItem: a decoded identity that does not belong to this slot.
	StatusWrongItem Status = "WRONG_ITEM"
	// StatusProcessingError: region extraction or decoding failed for this
	// slot only.
	StatusProcessingError Status = "PROCESSING_ERROR"
)

// Thresholds are the similarity levels above which a baseline match is
// considered conclusive.
type Thresholds struct {
	Empty    float64
	Occupied float64
}

// DefaultThresholds returns the standard high-confidence levels.
func DefaultThresholds() Thresholds {
	return Thresholds{Empty: 0.85, Occupied: 0.85}
}

// Evidence gathers everything known about one slot in one cycle.
type Evidence struct {
	// ExpectedID is the slot's own marker identity, empty if unconfigured.
	ExpectedID string
	// Payloads are the decoded, validated marker payloads found in the
	// region (already de-duplicated).
	Payloads []payload.Payload
	// SimilarityEmpty and SimilarityOccupied are the baseline comparison
	// results; invalid scores mean the baseline was absent.
	SimilarityEmpty    similarity.Score
	SimilarityOccupied similarity.Score
}

// Decision is the classification outcome.
type Decision struct {
	Status     Status
	Alert      bool
	DecodedID  string
	WorkerName string
	// CorrectItem is set only when the occupied baseline contributed:
	// true on a strong match, false when present-but-unconfirmed
	// (flagged for operator review).
	CorrectItem *bool
}

// Classify is a pure, deterministic function of the evidence. Coded markers
// always outrank similarity heuristics: a validated worker or slot payload
// decides the status regardless of any scores supplied alongside it. Only
// when nothing decodes does the weaker visual signal apply.
func Classify(ev Evidence, th Thresholds) Decision {
	// 1. Worker badge wins outright.
	for _, p := range ev.Payloads {
		if p.Kind == payload.KindWorker {
			return Decision{
				Status:     StatusCheckedOut,
				Alert:      false,
				DecodedID:  p.ID,
				WorkerName: p.WorkerName,
			}
		}
	}

	// 2. The slot's own marker is visible only when nothing covers it.
	for _, p := range ev.Payloads {
		if p.Kind == payload.KindSlot && ev.ExpectedID != "" && p.ID == ev.ExpectedID {
			return Decision{
				Status:    StatusEmpty,
				Alert:     true,
				DecodedID: p.ID,
			}
		}
	}

	// 3. Something decoded, but it does not belong here.
	if len(ev.Payloads) > 0 {
		return Decision{
			Status:    StatusWrongItem,
			Alert:     true,
			DecodedID: ev.Payloads[0].ID,
		}
	}

	// 4. No decodable marker: the slot marker is assumed occluded; fall
	// back to the baseline comparisons.
	if ev.SimilarityEmpty.Valid && ev.SimilarityEmpty.Value > th.Empty {
		return Decision{Status: StatusEmpty, Alert: true}
	}
	if ev.SimilarityOccupied.Valid && ev.SimilarityOccupied.Value > th.Occupied {
		correct := true
		return Decision{Status: StatusItemPresent, CorrectItem: &correct}
	}
	if ev.SimilarityOccupied.Valid {
		// An occupied baseline exists but nothing matched strongly;
		// report presence flagged for review.
		correct := false
		return Decision{Status: StatusItemPresent, CorrectItem: &correct}
	}

	// Without baselines absence cannot be asserted; default optimistic.
	return Decision{Status: StatusItemPresent, Alert: false}
}
