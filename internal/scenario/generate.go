package scenario

import (
	"cmp"
	"slices"
	"time"

	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// ClassificationInterval is the length of one classifier result.
const ClassificationInterval = 3 * time.Second

// Population describes the birds of one species.
type Population struct {
	Species  string `yaml:"species"`
	Birds    int    `yaml:"birds"`
	MinSongs int    `yaml:"min_songs"` // per bird over the whole period
	MaxSongs int    `yaml:"max_songs"`
}

// GenerateConfig controls GenerateDetections.
type GenerateConfig struct {
	Populations   []Population `yaml:"populations"`
	Begin         time.Time    `yaml:"begin"`
	End           time.Time    `yaml:"end"`
	HearingRadius float64      `yaml:"hearing_radius"`
	Seed          uint64       `yaml:"seed"`
}

// DefaultGenerateConfig returns three common chaffinches singing 125 to 300
// times each over three hours.
func DefaultGenerateConfig() GenerateConfig {
	begin := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	return GenerateConfig{
		Populations:   []Population{{Species: "comcha", Birds: 3, MinSongs: 125, MaxSongs: 300}},
		Begin:         begin,
		End:           begin.Add(3 * time.Hour),
		HearingRadius: 100,
	}
}

// Song is one vocalization at a position.
type Song struct {
	Species  string         `yaml:"species"`
	Bird     int            `yaml:"bird"` // index of the bird within its species
	Position geometry.Point `yaml:"position"`
	Begin    time.Time      `yaml:"begin"`
	End      time.Time      `yaml:"end"`
}

// Hear returns a detection at every node within radius of the song.
func Hear(nodes []sensorgraph.Node, radius float64, song Song) []detection.Detection {
	var out []detection.Detection
	for _, n := range nodes {
		if geometry.Distance(n.Position, song.Position) <= radius {
			out = append(out, detection.Detection{
				Node:        n.ID,
				SpeciesCode: song.Species,
				BeginTime:   song.Begin,
				EndTime:     song.End,
				Confidence:  1,
			})
		}
	}
	return out
}

// GenerateDetections simulates the populations singing over [Begin, End).
//
// Each bird draws its song count uniformly from [MinSongs, MaxSongs] and
// splits the period, less one classification interval, into that many equal
// slots; each song starts at a random offset within its slot and lasts one
// classification interval. Every song is placed uniformly at random in the
// bounding box of the network. Detections are returned sorted by begin time,
// together with the songs and the true count per species.
func GenerateDetections(nodes []sensorgraph.Node, cfg GenerateConfig) ([]detection.Detection, []Song, map[string]int, error) {
	if err := validateGenerate(nodes, cfg); err != nil {
		return nil, nil, nil, err
	}

	rng := newRand(cfg.Seed)
	box := BoundingBox(nodes, cfg.HearingRadius)
	span := cfg.End.Sub(cfg.Begin) - ClassificationInterval

	truth := make(map[string]int, len(cfg.Populations))
	var (
		songs []Song
		out   []detection.Detection
	)
	for _, pop := range cfg.Populations {
		truth[pop.Species] += pop.Birds
		for bird := range pop.Birds {
			count := pop.MinSongs + rng.IntN(pop.MaxSongs-pop.MinSongs+1)
			slot := float64(span) / float64(count)
			for k := range count {
				begin := cfg.Begin.Add(time.Duration((float64(k) + rng.Float64()) * slot))
				song := Song{
					Species: pop.Species,
					Bird:    bird,
					Position: geometry.Point{
						X: box.MinX + rng.Float64()*box.Width(),
						Y: box.MinY + rng.Float64()*box.Height(),
					},
					Begin: begin,
					End:   begin.Add(ClassificationInterval),
				}
				songs = append(songs, song)
				out = append(out, Hear(nodes, cfg.HearingRadius, song)...)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b detection.Detection) int {
		return a.BeginTime.Compare(b.BeginTime)
	})
	slices.SortStableFunc(songs, func(a, b Song) int {
		return cmp.Or(a.Begin.Compare(b.Begin), cmp.Compare(a.Species, b.Species))
	})
	return out, songs, truth, nil
}

func validateGenerate(nodes []sensorgraph.Node, cfg GenerateConfig) error {
	if len(nodes) == 0 {
		return errors.InvalidInput(componentName, "cannot generate detections without nodes").Build()
	}
	if !(cfg.HearingRadius > 0) {
		return errors.InvalidInput(componentName, "hearing radius must be positive, got %v", cfg.HearingRadius).Build()
	}
	if cfg.End.Sub(cfg.Begin) <= ClassificationInterval {
		return errors.InvalidInput(componentName, "period %s to %s is not longer than one classification interval", cfg.Begin, cfg.End).
			Build()
	}
	for _, pop := range cfg.Populations {
		if pop.Species == "" || pop.Birds < 0 || pop.MinSongs < 1 || pop.MaxSongs < pop.MinSongs {
			return errors.InvalidInput(componentName, "invalid population %+v", pop).
				Context("species", pop.Species).
				Build()
		}
	}
	return nil
}
