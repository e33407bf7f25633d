// Package mqtt provides MQTT client functionality and data transfer objects.
package mqtt

import (
	"time"

	"github.com/tphakala/birdnet-census/internal/census"
)

// EstimateDTO is the payload published for one species of a run.
//
// Field names are part of the MQTT API contract; add fields, don't rename.
type EstimateDTO struct {
	RunID         string  `json:"runId"`
	Species       string  `json:"species"`
	Count         int     `json:"count"`
	Windows       int     `json:"windows"`
	HearingRadius float64 `json:"hearingRadius"`
	Timestamp     string  `json:"timestamp"` // RFC3339, run start

	// Window that produced the maximum count, if any.
	PeakBegin string `json:"peakBegin,omitempty"`
	PeakEnd   string `json:"peakEnd,omitempty"`
}

// SummaryDTO is the payload published on the topic prefix for a whole run.
type SummaryDTO struct {
	RunID         string         `json:"runId"`
	Timestamp     string         `json:"timestamp"`
	DurationMs    float64        `json:"durationMs"`
	HearingRadius float64        `json:"hearingRadius"`
	Individuals   int            `json:"individuals"`
	Estimates     map[string]int `json:"estimates"`
	Source        string         `json:"source,omitempty"`
}

// NewEstimateDTO creates the payload for one species of res.
func NewEstimateDTO(res *census.Result, species string) *EstimateDTO {
	windows := res.WindowsFor(species)
	dto := &EstimateDTO{
		RunID:         res.RunID,
		Species:       species,
		Count:         res.Estimate(species),
		Windows:       len(windows),
		HearingRadius: res.Radius,
		Timestamp:     res.StartedAt.UTC().Format(time.RFC3339),
	}

	// first window reaching the estimate
	for i := range windows {
		if windows[i].Count == dto.Count {
			dto.PeakBegin = windows[i].Begin.UTC().Format(time.RFC3339Nano)
			dto.PeakEnd = windows[i].End.UTC().Format(time.RFC3339Nano)
			break
		}
	}
	return dto
}

// NewSummaryDTO creates the run summary payload.
func NewSummaryDTO(res *census.Result, source string) *SummaryDTO {
	estimates := make(map[string]int, len(res.Estimates))
	for code, n := range res.Estimates {
		estimates[code] = n
	}
	return &SummaryDTO{
		RunID:         res.RunID,
		Timestamp:     res.StartedAt.UTC().Format(time.RFC3339),
		DurationMs:    float64(res.Duration) / float64(time.Millisecond),
		HearingRadius: res.Radius,
		Individuals:   res.Total(),
		Estimates:     estimates,
		Source:        source,
	}
}
