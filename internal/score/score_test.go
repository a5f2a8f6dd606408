package score

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestUpdateEntropy(t *testing.T) {
	// Low novelty increases entropy.
	if got := UpdateEntropy(0.5, 0.2, false); !almostEqual(got, 0.58) {
		t.Fatalf("expected 0.58, got %f", got)
	}
	// High novelty decreases entropy.
	if got := UpdateEntropy(0.5, 0.7, false); !almostEqual(got, 0.44) {
		t.Fatalf("expected 0.44, got %f", got)
	}
	// Pattern repeat increases entropy.
	if got := UpdateEntropy(0.5, 0.5, true); !almostEqual(got, 0.6) {
		t.Fatalf("expected 0.6, got %f", got)
	}
	// Clamping at both ends.
	if got := UpdateEntropy(0.95, 0.1, true); got != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %f", got)
	}
	if got := UpdateEntropy(0.05, 0.8, false); got != 0.0 {
		t.Fatalf("expected clamp to 0.0, got %f", got)
	}
}

func TestUpdateEntropyAdjustmentsStack(t *testing.T) {
	// Low novelty and pattern repeat apply together: 0.4 + 0.08 + 0.10.
	if got := UpdateEntropy(0.4, 0.1, true); !almostEqual(got, 0.58) {
		t.Fatalf("expected 0.58, got %f", got)
	}
}

func TestUpdateEntropyStaysInRange(t *testing.T) {
	for e := 0.0; e <= 1.0; e += 0.05 {
		for n := 0.0; n <= 1.0; n += 0.05 {
			for _, repeat := range []bool{false, true} {
				got := UpdateEntropy(e, n, repeat)
				if got < 0 || got > 1 {
					t.Fatalf("UpdateEntropy(%f, %f, %v) = %f out of range", e, n, repeat, got)
				}
			}
		}
	}
}

func TestEstimateNarrativeWeight(t *testing.T) {
	if got := EstimateNarrativeWeight(Flags{}); !almostEqual(got, 0.2) {
		t.Fatalf("expected base 0.2, got %f", got)
	}
	if got := EstimateNarrativeWeight(Flags{DesireFearConfession: true}); !almostEqual(got, 0.4) {
		t.Fatalf("expected 0.4, got %f", got)
	}
	if got := EstimateNarrativeWeight(Flags{DesireFearConfession: true, ReferencesPast: true}); !almostEqual(got, 0.6) {
		t.Fatalf("expected 0.6, got %f", got)
	}
	all := Flags{
		DesireFearConfession: true,
		ReferencesPast:       true,
		DecisionPoint:        true,
		IdentityStatement:    true,
	}
	if got := EstimateNarrativeWeight(all); !almostEqual(got, 1.0) {
		t.Fatalf("expected 1.0, got %f", got)
	}
}

func TestWeightForFlagCountClamps(t *testing.T) {
	// Four flags land on 1.0 without clamping; a hypothetical fifth flag
	// family must saturate rather than push the weight past 1.
	if got := weightForFlagCount(4); !almostEqual(got, 1.0) {
		t.Fatalf("4 flags: expected 1.0, got %f", got)
	}
	if got := weightForFlagCount(5); !almostEqual(got, 1.0) {
		t.Fatalf("5 flags: expected clamp to 1.0, got %f", got)
	}
	if got := weightForFlagCount(6); !almostEqual(got, 1.0) {
		t.Fatalf("6 flags: expected clamp to 1.0, got %f", got)
	}
}

func TestComputeMeaningfulness(t *testing.T) {
	// 0.5*0.8 + 0.3*0.6 + 0.2*0.6 = 0.7
	if got := ComputeMeaningfulness(0.8, 0.6, 0.4); !almostEqual(got, 0.7) {
		t.Fatalf("expected 0.7, got %f", got)
	}
	if got := ComputeMeaningfulness(0, 0, 1); !almostEqual(got, 0) {
		t.Fatalf("expected 0, got %f", got)
	}
	if got := ComputeMeaningfulness(1, 1, 0); !almostEqual(got, 1) {
		t.Fatalf("expected 1, got %f", got)
	}
}

func TestNoveltyOfNoHistory(t *testing.T) {
	if got := NoveltyOf("anything", nil); got != 1.0 {
		t.Fatalf("expected max novelty with no history, got %f", got)
	}
	if got := NoveltyOf("anything", []string{"", ""}); got != 1.0 {
		t.Fatalf("expected empty history texts ignored, got %f", got)
	}
}

func TestNoveltyOfIdenticalText(t *testing.T) {
	if got := NoveltyOf("same message", []string{"same message"}); got != 0.0 {
		t.Fatalf("expected zero novelty for identical text, got %f", got)
	}
}

func TestNoveltyOfUsesMaxSimilarity(t *testing.T) {
	recent := []string{"completely unrelated words here", "hello there friend"}
	got := NoveltyOf("hello there friend!", recent)
	if got > 0.2 {
		t.Fatalf("expected low novelty against a near match, got %f", got)
	}
}

func TestSimilarityBounds(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Fatalf("expected identical empties similar, got %f", got)
	}
	if got := Similarity("abc", "xyz"); got != 0.0 {
		t.Fatalf("expected disjoint strings dissimilar, got %f", got)
	}
	got := Similarity("kitten", "sitting")
	if got < 0 || got > 1 {
		t.Fatalf("similarity out of range: %f", got)
	}
}
