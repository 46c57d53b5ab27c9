package model

import "math"

// Scaler standardizes feature vectors to zero mean and unit variance using
// statistics computed from the training set. Zero-variance features keep
// std=1 to avoid division by zero.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-feature mean/std over the sample matrix.
func FitScaler(samples [][]float64) *Scaler {
	if len(samples) == 0 {
		return &Scaler{}
	}
	dim := len(samples[0])
	mean := make([]float64, dim)
	std := make([]float64, dim)
	n := float64(len(samples))

	for _, s := range samples {
		for j := 0; j < dim; j++ {
			mean[j] += s[j]
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, s := range samples {
		for j := 0; j < dim; j++ {
			d := s[j] - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return &Scaler{Mean: mean, Std: std}
}

// Transform returns the standardized copy of x.
func (s *Scaler) Transform(x []float64) []float64 {
	if len(s.Mean) != len(x) {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	out := make([]float64, len(x))
	for j := range x {
		out[j] = (x[j] - s.Mean[j]) / s.Std[j]
	}
	return out
}
