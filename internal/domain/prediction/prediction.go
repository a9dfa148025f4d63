// Package prediction estimates the probability that one player beats another.
//
// Two independent estimates are produced: a skill estimate from the rating
// beliefs and a historical estimate from past results. The reported figure
// blends both; the parts stay visible to callers.
package prediction

import (
	"math"

	"github.com/okian/rally/internal/domain/rating"
)

// Weights used by the historical and blended estimates.
const (
	HeadToHeadWeight = 0.4
	MomentumWeight   = 0.4
	GrossWeight      = 0.2

	HistoricalWeight = 0.5
	SkillWeight      = 0.5

	// FormWindow is the number of most recent matches counted for momentum.
	FormWindow = 5

	neutral      = 0.5
	denomEpsilon = 1e-12
)

// Form summarises one player's record.
type Form struct {
	Wins   int
	Played int
	// Recent holds the latest results, newest first; true is a win. Only the
	// first FormWindow entries are read.
	Recent []bool
}

// History is everything the historical estimate needs about a pairing.
type History struct {
	A, B Form
	// HeadToHeadWinsA counts A's wins over B; HeadToHeadPlayed counts all their meetings.
	HeadToHeadWinsA  int
	HeadToHeadPlayed int
}

// Signals are the three historical sub-estimates, each from A's point of view.
type Signals struct {
	HeadToHead float64 `json:"head_to_head"`
	Momentum   float64 `json:"momentum"`
	Gross      float64 `json:"gross"`
}

// Weights documents how the reported numbers are combined.
type Weights struct {
	Skill      float64 `json:"skill"`
	Historical float64 `json:"historical"`
	HeadToHead float64 `json:"head_to_head"`
	Momentum   float64 `json:"momentum"`
	Gross      float64 `json:"gross"`
}

// Prediction is the externally reported estimate for A beating B.
type Prediction struct {
	ModelSkill      float64 `json:"model_skill"`
	ModelHistorical float64 `json:"model_historical"`
	Blended         float64 `json:"blended"`
	Signals         Signals `json:"signals"`
	Weights         Weights `json:"weights"`
}

// DefaultWeights returns the fixed blend weights.
func DefaultWeights() Weights {
	return Weights{
		Skill:      SkillWeight,
		Historical: HistoricalWeight,
		HeadToHead: HeadToHeadWeight,
		Momentum:   MomentumWeight,
		Gross:      GrossWeight,
	}
}

// SkillWinProbability is the logistic estimate from two beliefs.
func SkillWinProbability(a, b rating.Belief) float64 {
	delta := a.Mu - b.Mu
	denom := math.Sqrt(2*rating.Beta*rating.Beta + a.Variance() + b.Variance())
	if denom < denomEpsilon {
		switch {
		case delta > 0:
			return 1
		case delta < 0:
			return 0
		default:
			return neutral
		}
	}
	return 1 / (1 + math.Exp(-delta/denom))
}

// HistoricalSignals computes the three sub-estimates. Any signal without
// data is neutral.
func HistoricalSignals(h History) Signals {
	return Signals{
		HeadToHead: headToHead(h.HeadToHeadWinsA, h.HeadToHeadPlayed),
		Momentum:   ratio(momentum(h.A), momentum(h.B)),
		Gross:      ratio(winRate(h.A), winRate(h.B)),
	}
}

// HistoricalWinProbability is the weighted mix of the historical signals.
// With no matches at all it is exactly 0.5.
func HistoricalWinProbability(h History) float64 {
	return HistoricalSignals(h).combined()
}

func (s Signals) combined() float64 {
	return HeadToHeadWeight*s.HeadToHead + MomentumWeight*s.Momentum + GrossWeight*s.Gross
}

// Blend mixes the historical and skill estimates and clamps to [0, 1].
func Blend(historical, skill float64) float64 {
	return clamp01(HistoricalWeight*historical + SkillWeight*skill)
}

// Predict builds the full report for A against B.
func Predict(a, b rating.Belief, h History) Prediction {
	skill := SkillWinProbability(a, b)
	signals := HistoricalSignals(h)
	historical := signals.combined()
	return Prediction{
		ModelSkill:      skill,
		ModelHistorical: historical,
		Blended:         Blend(historical, skill),
		Signals:         signals,
		Weights:         DefaultWeights(),
	}
}

func winRate(f Form) float64 {
	if f.Played <= 0 {
		return 0
	}
	return float64(f.Wins) / float64(f.Played)
}

// momentum divides by the full window even when fewer matches exist, so a
// short record is pulled toward the neutral ratio.
func momentum(f Form) float64 {
	n := len(f.Recent)
	if n > FormWindow {
		n = FormWindow
	}
	wins := 0
	for _, won := range f.Recent[:n] {
		if won {
			wins++
		}
	}
	return float64(wins) / FormWindow
}

func headToHead(winsA, played int) float64 {
	if played <= 0 {
		return neutral
	}
	return float64(winsA) / float64(played)
}

func ratio(a, b float64) float64 {
	if a+b == 0 {
		return neutral
	}
	return a / (a + b)
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
