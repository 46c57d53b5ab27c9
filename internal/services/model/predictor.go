package model

import (
	"math"

	domsvc "QuantSig/internal/domain/service"
)

// LinearPredictor is a deliberately simple stand-in for a real statistical
// model: per-feature univariate regression coefficients over standardized
// inputs, squashed into [-1,1]. The interface is what matters; a trained
// model can replace it without touching callers.
type LinearPredictor struct {
	weights  []float64
	bias     float64
	labelStd float64
}

// Fit estimates coefficients from standardized samples and forward-return
// labels, then scores itself against the training set. The returned metrics
// are advisory telemetry, not a gating condition.
func Fit(samples [][]float64, labels []float64) (*LinearPredictor, domsvc.ValidationMetrics) {
	n := len(samples)
	if n == 0 || n != len(labels) {
		return &LinearPredictor{labelStd: 1}, domsvc.ValidationMetrics{}
	}
	dim := len(samples[0])

	labelMean := 0.0
	for _, y := range labels {
		labelMean += y
	}
	labelMean /= float64(n)

	labelVar := 0.0
	for _, y := range labels {
		d := y - labelMean
		labelVar += d * d
	}
	labelVar /= float64(n)
	labelStd := math.Sqrt(labelVar)
	if labelStd == 0 {
		labelStd = 1
	}

	// per-feature OLS slope; inputs are standardized so var(x_j) ~ 1
	weights := make([]float64, dim)
	for j := 0; j < dim; j++ {
		var cov, varX float64
		var meanX float64
		for i := 0; i < n; i++ {
			meanX += samples[i][j]
		}
		meanX /= float64(n)
		for i := 0; i < n; i++ {
			dx := samples[i][j] - meanX
			cov += dx * (labels[i] - labelMean)
			varX += dx * dx
		}
		if varX > 0 {
			weights[j] = cov / varX / float64(dim)
		}
	}

	p := &LinearPredictor{weights: weights, bias: labelMean, labelStd: labelStd}

	var sse, sae, sst float64
	classHits := 0
	for i := 0; i < n; i++ {
		pred := p.raw(samples[i])
		d := pred - labels[i]
		sse += d * d
		sae += math.Abs(d)
		dt := labels[i] - labelMean
		sst += dt * dt
		if returnClass(pred) == returnClass(labels[i]) {
			classHits++
		}
	}
	metrics := domsvc.ValidationMetrics{
		MAE:           sae / float64(n),
		MSE:           sse / float64(n),
		Samples:       n,
		ClassAccuracy: float64(classHits) / float64(n),
	}
	if sst > 0 {
		metrics.R2 = 1 - sse/sst
	}
	return p, metrics
}

// returnClass buckets a forward return into sell (-1), hold (0), or
// buy (1) using the class thresholds.
func returnClass(r float64) int {
	switch {
	case r >= BuyClassThreshold:
		return 1
	case r <= SellClassThreshold:
		return -1
	default:
		return 0
	}
}

func (p *LinearPredictor) raw(x []float64) float64 {
	out := p.bias
	for j := range p.weights {
		if j < len(x) {
			out += p.weights[j] * x[j]
		}
	}
	return out
}

// Score maps a standardized feature vector to a forward-return score
// bounded to [-1,1].
func (p *LinearPredictor) Score(x []float64) float64 {
	raw := p.raw(x)
	s := raw / (2 * p.labelStd)
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
