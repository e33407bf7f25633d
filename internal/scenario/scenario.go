package scenario

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// NodeSpec is a node in a scenario file.
type NodeSpec struct {
	ID int64   `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

// DetectionSpec is a detection in a scenario file.
type DetectionSpec struct {
	Node    int64     `yaml:"node"`
	Species string    `yaml:"species"`
	Begin   time.Time `yaml:"begin"`
	End     time.Time `yaml:"end"`
}

// Scenario is a layout, its detections and the ground truth that produced
// them.
type Scenario struct {
	Name          string          `yaml:"name"`
	Description   string          `yaml:"description,omitempty"`
	HearingRadius float64         `yaml:"hearing_radius"`
	Nodes         []NodeSpec      `yaml:"nodes"`
	Detections    []DetectionSpec `yaml:"detections"`
	Songs         []Song          `yaml:"songs,omitempty"`
	Truth         map[string]int  `yaml:"truth"`
}

// New assembles a scenario from generated parts.
func New(name string, radius float64, nodes []sensorgraph.Node, ds []detection.Detection, songs []Song, truth map[string]int) *Scenario {
	s := &Scenario{
		Name:          name,
		HearingRadius: radius,
		Nodes:         make([]NodeSpec, len(nodes)),
		Detections:    make([]DetectionSpec, len(ds)),
		Songs:         songs,
		Truth:         truth,
	}
	for i, n := range nodes {
		s.Nodes[i] = NodeSpec{ID: n.ID, X: n.Position.X, Y: n.Position.Y}
	}
	for i := range ds {
		d := &ds[i]
		s.Detections[i] = DetectionSpec{Node: d.Node, Species: d.SpeciesCode, Begin: d.BeginTime, End: d.EndTime}
	}
	return s
}

// SensorNodes converts the node specs for sensorgraph.Build.
func (s *Scenario) SensorNodes() []sensorgraph.Node {
	nodes := make([]sensorgraph.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		nodes[i] = sensorgraph.Node{ID: n.ID, Position: geometry.Point{X: n.X, Y: n.Y}}
	}
	return nodes
}

// SensorDetections converts the detection specs for the estimator.
func (s *Scenario) SensorDetections() []detection.Detection {
	ds := make([]detection.Detection, len(s.Detections))
	for i, d := range s.Detections {
		ds[i] = detection.Detection{Node: d.Node, SpeciesCode: d.Species, BeginTime: d.Begin, EndTime: d.End}
	}
	return ds
}

// Graph builds the unit disk graph of the scenario.
func (s *Scenario) Graph() (*sensorgraph.Graph, error) {
	return sensorgraph.Build(s.SensorNodes(), s.HearingRadius)
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is an operator supplied scenario file
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	return &s, nil
}

// Save writes s to path, creating parent directories.
func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileParsing).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: scenario files are not secret
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
