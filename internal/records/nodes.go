package records

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// NodeSet is the result of reading a node file.
type NodeSet struct {
	Nodes []sensorgraph.Node
	// Origin is the projection origin for geographic input, nil for planar.
	Origin *geometry.LatLon
}

// LoadNodes reads a node file from disk.
func LoadNodes(path string, opts Options) (*NodeSet, error) {
	f, closeFile, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFile()
	return ReadNodes(f, opts)
}

// ReadNodes reads node positions. A node listed more than once keeps its
// first position. Geographic positions are projected onto a plane around the
// mean of all positions.
func ReadNodes(r io.Reader, opts Options) (*NodeSet, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	geo := opts.Coordinates == Geographic
	if geo {
		err = h.require(ColNode, ColLat, ColLon)
	} else {
		err = h.require(ColNode, ColX, ColY)
	}
	if err != nil {
		return nil, err
	}

	var (
		ids       []int64
		planar    []geometry.Point
		positions []geometry.LatLon
		seen      = make(map[int64]int)
		skipped   int
	)

	err = rows(cr, func(line int, record []string) error {
		id, err := parseNodeID(line, h.field(record, ColNode))
		if err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			skipped++
			return nil
		}

		if geo {
			ll, err := readLatLon(h, line, record)
			if err != nil {
				return err
			}
			positions = append(positions, ll)
		} else {
			p, err := readPoint(h, line, record)
			if err != nil {
				return err
			}
			planar = append(planar, p)
		}
		seen[id] = len(ids)
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, parseError(1, "no nodes found").
			Category(errors.CategoryInvalidInput).
			Build()
	}

	set := &NodeSet{Nodes: make([]sensorgraph.Node, len(ids))}
	if geo {
		projector := geometry.NewLocalProjectorFor(positions)
		origin := projector.Origin()
		set.Origin = &origin
		for _, ll := range positions {
			planar = append(planar, projector.Project(ll))
		}
	}
	for i, id := range ids {
		set.Nodes[i] = sensorgraph.Node{ID: id, Position: planar[i]}
	}

	opts.log().Debug("nodes loaded",
		logger.Int("nodes", len(set.Nodes)),
		logger.Int("duplicates_skipped", skipped),
		logger.Bool("geographic", geo))
	return set, nil
}

func readPoint(h header, line int, record []string) (geometry.Point, error) {
	x, err := parseFloat(line, ColX, h.field(record, ColX))
	if err != nil {
		return geometry.Point{}, err
	}
	y, err := parseFloat(line, ColY, h.field(record, ColY))
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Point{X: x, Y: y}, nil
}

func readLatLon(h header, line int, record []string) (geometry.LatLon, error) {
	lat, err := parseFloat(line, ColLat, h.field(record, ColLat))
	if err != nil {
		return geometry.LatLon{}, err
	}
	lon, err := parseFloat(line, ColLon, h.field(record, ColLon))
	if err != nil {
		return geometry.LatLon{}, err
	}
	ll := geometry.LatLon{Lat: lat, Lon: lon}
	if !ll.Valid() {
		return geometry.LatLon{}, parseError(line, "position %v, %v is outside the valid latitude and longitude range", lat, lon).
			Category(errors.CategoryInvalidInput).
			Build()
	}
	return ll, nil
}

// WriteNodes writes planar node positions with the node,n_x,n_y header.
func WriteNodes(w io.Writer, nodes []sensorgraph.Node) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColNode, ColX, ColY}); err != nil {
		return writeError(err)
	}
	for _, n := range nodes {
		if err := cw.Write([]string{
			strconv.FormatInt(n.ID, 10),
			strconv.FormatFloat(n.Position.X, 'f', -1, 64),
			strconv.FormatFloat(n.Position.Y, 'f', -1, 64),
		}); err != nil {
			return writeError(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return writeError(err)
	}
	return nil
}

func writeError(err error) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryFileIO).
		Build()
}
