// Package detection provides the detection record consumed by the census
// pipeline and the temporal windowing that groups a species' detections into
// counting units.
//
// A Detection is one classifier firing: a node heard a species during
// [BeginTime, EndTime). Detections are plain values; the package never
// mutates the slices it is given.
package detection

import (
	"slices"
	"strings"
	"time"

	"github.com/tphakala/birdnet-census/internal/errors"
)

const componentName = "detection"

// Detection represents one classifier firing at a sensor node.
type Detection struct {
	Node        int64     // Sensor node that heard the vocalization
	SpeciesCode string    // eBird taxonomy code or another stable species key
	CommonName  string    // Optional display name
	BeginTime   time.Time // Inclusive start of the classified interval
	EndTime     time.Time // Exclusive end of the classified interval
	Confidence  float64   // Classifier confidence (0.0-1.0), informational only
}

// NewDetection creates a detection and validates it.
func NewDetection(node int64, speciesCode string, begin, end time.Time) (*Detection, error) {
	d := &Detection{
		Node:        node,
		SpeciesCode: strings.TrimSpace(speciesCode),
		BeginTime:   begin,
		EndTime:     end,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks that the detection names a species and has a non-empty
// interval. A zero BeginTime or EndTime counts as a missing timestamp and is
// rejected even when the other bound would order correctly.
func (d *Detection) Validate() error {
	if d.SpeciesCode == "" {
		return errors.InvalidInput(componentName, "detection at node %d has no species code", d.Node).
			Context("node", d.Node).
			Build()
	}
	if d.BeginTime.IsZero() || d.EndTime.IsZero() {
		return errors.InvalidInput(componentName, "detection of %s at node %d has no time interval", d.SpeciesCode, d.Node).
			Context("node", d.Node).
			Context("species", d.SpeciesCode).
			Build()
	}
	if !d.BeginTime.Before(d.EndTime) {
		return errors.InvalidInput(componentName, "detection of %s at node %d begins at or after it ends", d.SpeciesCode, d.Node).
			Context("node", d.Node).
			Context("species", d.SpeciesCode).
			Context("begin_time", d.BeginTime).
			Context("end_time", d.EndTime).
			Build()
	}
	return nil
}

// Duration returns the length of the detection interval.
func (d *Detection) Duration() time.Duration {
	return d.EndTime.Sub(d.BeginTime)
}

// Overlaps reports whether two half-open intervals share any instant.
func (d *Detection) Overlaps(o *Detection) bool {
	return d.BeginTime.Before(o.EndTime) && o.BeginTime.Before(d.EndTime)
}

// ValidateAll validates every detection and returns the first failure.
func ValidateAll(detections []Detection) error {
	for i := range detections {
		if err := detections[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GroupBySpecies splits detections by species code. Codes are returned in
// ascending order; each group keeps the input order.
func GroupBySpecies(detections []Detection) (codes []string, groups map[string][]Detection) {
	groups = make(map[string][]Detection)
	for i := range detections {
		code := detections[i].SpeciesCode
		if _, seen := groups[code]; !seen {
			codes = append(codes, code)
		}
		groups[code] = append(groups[code], detections[i])
	}
	slices.Sort(codes)
	return codes, groups
}
