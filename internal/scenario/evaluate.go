package scenario

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// SpeciesError compares one species' estimate with its true count.
type SpeciesError struct {
	Species  string
	Truth    int
	Estimate int
	Error    int // Estimate - Truth
}

// Evaluation summarizes estimate errors over all species.
type Evaluation struct {
	Species []SpeciesError // sorted by species code

	MeanAbsoluteError float64
	MeanSignedError   float64
	StdDevError       float64 // sample standard deviation of the signed errors, 0 below two species
	AccuracyRate      float64 // fraction of species estimated exactly
}

// Evaluate compares estimates with the ground truth. A species missing from
// either map counts as zero there. Without species every summary is zero.
func Evaluate(truth, estimates map[string]int) Evaluation {
	codes := make([]string, 0, len(truth)+len(estimates))
	for code := range truth {
		codes = append(codes, code)
	}
	for code := range estimates {
		if _, ok := truth[code]; !ok {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)

	ev := Evaluation{Species: make([]SpeciesError, len(codes))}
	if len(codes) == 0 {
		return ev
	}

	signed := make([]float64, len(codes))
	absolute := make([]float64, len(codes))
	exact := 0
	for i, code := range codes {
		se := SpeciesError{Species: code, Truth: truth[code], Estimate: estimates[code]}
		se.Error = se.Estimate - se.Truth
		ev.Species[i] = se

		signed[i] = float64(se.Error)
		absolute[i] = math.Abs(signed[i])
		if se.Error == 0 {
			exact++
		}
	}

	ev.MeanSignedError = stat.Mean(signed, nil)
	ev.MeanAbsoluteError = stat.Mean(absolute, nil)
	if len(signed) > 1 {
		ev.StdDevError = stat.StdDev(signed, nil)
	}
	ev.AccuracyRate = float64(exact) / float64(len(codes))
	return ev
}
