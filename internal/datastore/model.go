// model.go this code defines the data model for stored census runs
package datastore

import (
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/birdnet-census/internal/census"
)

// CensusRun is one estimation run.
type CensusRun struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"` // uuid, census.Result.RunID
	StartedAt     time.Time `gorm:"index:idx_census_runs_started_at"`
	Duration      time.Duration
	HearingRadius float64
	Source        string // free-form origin, e.g. input file or scenario name
	Species       int    // species with at least one detection
	Windows       int
	Individuals   int // sum of species estimates

	Estimates     []SpeciesEstimate `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	WindowResults []WindowRecord    `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// SpeciesEstimate is the estimate of one species in a run.
type SpeciesEstimate struct {
	ID          uint      `gorm:"primaryKey"`
	RunID       string    `gorm:"type:varchar(36);index;not null"`
	SpeciesCode string    `gorm:"index:idx_species_estimates_species"`
	Count       int       // maximum window count
	CreatedAt   time.Time `gorm:"index"`
}

// WindowRecord is the outcome of one window in a run.
type WindowRecord struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"type:varchar(36);index;not null"`
	SpeciesCode  string `gorm:"index"`
	WindowIndex  int
	BeginTime    time.Time
	EndTime      time.Time
	Nodes        string // comma separated node ids
	Detections   int
	EdgesRemoved int
	Count        int
}

// NewCensusRun maps an estimation result to its stored form.
func NewCensusRun(res *census.Result, source string) *CensusRun {
	run := &CensusRun{
		ID:            res.RunID,
		StartedAt:     res.StartedAt,
		Duration:      res.Duration,
		HearingRadius: res.Radius,
		Source:        source,
		Species:       len(res.Estimates),
		Windows:       len(res.Windows),
		Individuals:   res.Total(),
	}

	for _, code := range res.Species() {
		run.Estimates = append(run.Estimates, SpeciesEstimate{
			RunID:       res.RunID,
			SpeciesCode: code,
			Count:       res.Estimates[code],
		})
	}
	for i := range res.Windows {
		w := &res.Windows[i]
		run.WindowResults = append(run.WindowResults, WindowRecord{
			RunID:        res.RunID,
			SpeciesCode:  w.Species,
			WindowIndex:  w.Index,
			BeginTime:    w.Begin,
			EndTime:      w.End,
			Nodes:        joinIDs(w.Nodes),
			Detections:   w.Detections,
			EdgesRemoved: len(w.EdgesRemoved),
			Count:        w.Count,
		})
	}
	return run
}

// EstimateMap returns the run's estimates keyed by species code.
func (r *CensusRun) EstimateMap() map[string]int {
	out := make(map[string]int, len(r.Estimates))
	for _, e := range r.Estimates {
		out[e.SpeciesCode] = e.Count
	}
	return out
}

// NodeIDs parses the stored node list.
func (w *WindowRecord) NodeIDs() []int64 {
	if w.Nodes == "" {
		return nil
	}
	parts := strings.Split(w.Nodes, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func joinIDs(ids []int64) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
