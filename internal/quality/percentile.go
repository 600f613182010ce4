package quality

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

const DefaultPercentile = 95.0

// Percentile returns the p-th percentile of values using linear interpolation
// between closest ranks: rank h = (n-1)*p/100, result x[floor h] + frac(h) *
// (x[floor h + 1] - x[floor h]). values is not modified.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, &model.EmptyDatasetError{}
	}
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile %v out of range [0,100]", p)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo], nil
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo]), nil
}

// ComputeThresholds collects every width and height once and takes the p-th
// percentile of each dimension independently.
func ComputeThresholds(annotations []model.Annotation, p float64) (model.Thresholds, error) {
	if len(annotations) == 0 {
		return model.Thresholds{}, &model.EmptyDatasetError{}
	}

	widths, heights := dimensions(annotations)

	w, err := Percentile(widths, p)
	if err != nil {
		return model.Thresholds{}, fmt.Errorf("width: %w", err)
	}
	h, err := Percentile(heights, p)
	if err != nil {
		return model.Thresholds{}, fmt.Errorf("height: %w", err)
	}
	return model.Thresholds{Percentile: p, Width: w, Height: h}, nil
}

// Distribution summarizes one dimension for reporting.
func Distribution(values []float64, p float64) model.Distribution {
	if len(values) == 0 {
		return model.Distribution{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	pv, _ := Percentile(values, p)
	return model.Distribution{
		Count:  len(values),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Pct:    pv,
	}
}

func dimensions(annotations []model.Annotation) (widths, heights []float64) {
	widths = make([]float64, 0, len(annotations))
	heights = make([]float64, 0, len(annotations))
	for _, a := range annotations {
		widths = append(widths, a.W())
		heights = append(heights, a.H())
	}
	return widths, heights
}
