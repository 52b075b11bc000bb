package views

import (
	"math"
	"sort"
)

// outlierZ is the robust |z| cutoff used for the MAD outlier count.
const outlierZ = 3.5

// Summary describes the spread of a numeric column for a box plot.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	// Box whiskers at 1.5 IQR.
	LowerFence float64 `json:"lower_fence"`
	UpperFence float64 `json:"upper_fence"`
	// Values whose robust z-score (MAD) exceeds 3.5.
	Outliers []float64 `json:"outliers,omitempty"`
}

func summarize(vals []float64) *Summary {
	if len(vals) == 0 {
		return &Summary{}
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)

	s := &Summary{
		Count:  len(cp),
		Min:    cp[0],
		Max:    cp[len(cp)-1],
		Q1:     quantile(cp, 0.25),
		Median: quantile(cp, 0.5),
		Q3:     quantile(cp, 0.75),
	}
	// Welford
	var mean, m2 float64
	for i, x := range cp {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	s.Mean = mean
	if len(cp) > 1 {
		s.Std = math.Sqrt(m2 / float64(len(cp)-1))
	}
	iqr := s.Q3 - s.Q1
	s.LowerFence = s.Q1 - 1.5*iqr
	s.UpperFence = s.Q3 + 1.5*iqr
	median, mad := medianMAD(cp)
	if mad > 0 {
		for _, x := range cp {
			if math.Abs(0.6745*(x-median)/mad) > outlierZ {
				s.Outliers = append(s.Outliers, x)
			}
		}
	}
	return s
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// pearson returns the correlation of paired samples, false when undefined.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0, false
	}
	var sumX, sumY, sumXX, sumYY, sumXY float64
	for i := range xs {
		x, y := xs[i], ys[i]
		sumX += x
		sumY += y
		sumXX += x * x
		sumYY += y * y
		sumXY += x * y
	}
	denom := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}
	r := (n*sumXY - sumX*sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}
