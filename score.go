package imagedup

import (
	"fmt"
	"math"
)

// QualitySignal is a single contribution to an item's quality score.
type QualitySignal struct {
	Source string  // signal source: "resolution", "engagement", "metadata"
	Detail string  // human-readable detail
	Weight float64 // contribution to the final score
}

// QualityAssessment combines the individual signals into the final score.
type QualityAssessment struct {
	Score   float64         // in [0, 1], rounded to two decimals
	Signals []QualitySignal // contributing evidence (never nil, may be empty)
}

// QualityScore computes the ranking signal used by the cluster resolver.
// It is a pure function of the item's pixel dimensions, its engagement count
// (likes, saves, clicks, whatever the source provides), and whether the
// item carries descriptive metadata.
//
// Resolution contributes up to 0.4 (banded on min(width, height)),
// engagement up to 0.4, metadata presence a flat 0.2.
func QualityScore(width, height, engagement int, hasMetadata bool) float64 {
	return AssessQuality(width, height, engagement, hasMetadata).Score
}

// AssessQuality is [QualityScore] with the contributing signals exposed, for
// callers that need to explain a ranking decision.
func AssessQuality(width, height, engagement int, hasMetadata bool) QualityAssessment {
	signals := make([]QualitySignal, 0, 3)

	minDim := min(width, height)
	if minDim < 0 {
		minDim = 0
	}
	var resolution float64
	switch {
	case minDim >= 1080:
		resolution = 0.4
	case minDim >= 720:
		resolution = 0.3
	case minDim >= 480:
		resolution = 0.2
	case minDim > 0:
		resolution = 0.1
	}
	if resolution > 0 {
		signals = append(signals, QualitySignal{
			Source: "resolution",
			Detail: fmt.Sprintf("min dimension %dpx", minDim),
			Weight: resolution,
		})
	}

	var engaged float64
	switch {
	case engagement >= 1000:
		engaged = 0.4
	case engagement >= 500:
		engaged = 0.3
	case engagement >= 100:
		engaged = 0.2
	case engagement >= 10:
		engaged = 0.1
	}
	if engaged > 0 {
		signals = append(signals, QualitySignal{
			Source: "engagement",
			Detail: fmt.Sprintf("engagement count %d", engagement),
			Weight: engaged,
		})
	}

	var meta float64
	if hasMetadata {
		meta = 0.2
		signals = append(signals, QualitySignal{
			Source: "metadata",
			Detail: "descriptive metadata present",
			Weight: meta,
		})
	}

	return QualityAssessment{
		Score:   math.Round((resolution+engaged+meta)*100) / 100,
		Signals: signals,
	}
}
