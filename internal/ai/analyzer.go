package ai

import (
	"context"

	"github.com/kozaktomas/photo-moments/internal/moments"
)

// Analyzer defines the interface for AI quality analysis backends.
type Analyzer interface {
	Name() string
	AnalyzeQuality(ctx context.Context, imageData []byte) (*moments.QualityScores, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens.
type RequestPricing struct {
	Input  float64
	Output float64
}

// qualityAnalysis is the JSON shape the model is asked to produce.
// Aesthetic is a pointer so an omitted field is distinguishable from a
// genuine 0 (neutral) judgment.
type qualityAnalysis struct {
	TechnicalQuality float64        `json:"technical_quality"`
	FaceQuality      float64        `json:"face_quality"`
	Aesthetic        *float64       `json:"aesthetic"`
	Composition      float64        `json:"composition"`
	Labels           []string       `json:"labels"`
	SalientRegions   []salientBoxes `json:"salient_regions"`
}

type salientBoxes struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Score float64 `json:"score"`
}
