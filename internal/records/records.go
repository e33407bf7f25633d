// Package records reads and writes the CSV files exchanged with the census:
// sensor node positions and classifier detections.
//
// Node files carry either planar coordinates (node,n_x,n_y) or geographic
// ones (node,lat,lon). Detection files need node, species_code (or
// species_name_en), begin_time and end_time; other columns are ignored, so a
// single combined export holding both positions and detections can be read
// by both loaders.
package records

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
)

const componentName = "records"

// Column names.
const (
	ColNode          = "node"
	ColX             = "n_x"
	ColY             = "n_y"
	ColLat           = "lat"
	ColLon           = "lon"
	ColSpeciesCode   = "species_code"
	ColSpeciesNameEN = "species_name_en"
	ColBeginTime     = "begin_time"
	ColEndTime       = "end_time"
	ColConfidence    = "confidence"
)

// Coordinate systems, matching the input.coordinates setting.
const (
	Planar     = "2d"
	Geographic = "geo"
)

// fallbackTimeLayouts are tried in order when no layout is configured. The
// space-separated forms match common dataframe exports.
var fallbackTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Options controls parsing.
type Options struct {
	// Coordinates is Planar or Geographic; empty means Planar.
	Coordinates string
	// TimeFormat is a Go time layout; empty tries RFC 3339 and common
	// dataframe layouts, interpreting zone-less timestamps as UTC.
	TimeFormat string

	Logger logger.Logger
}

func (o Options) log() logger.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.Global().Module(componentName)
}

// header maps lower-cased column names to their index.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	names, err := r.Read()
	if err == io.EOF {
		return nil, parseError(1, "file is empty").Build()
	}
	if err != nil {
		return nil, wrapParse(err)
	}
	h := make(header, len(names))
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h, nil
}

func (h header) has(cols ...string) bool {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return false
		}
	}
	return true
}

func (h header) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return parseError(1, "missing required column %q", c).
				Context("column", c).
				Build()
		}
	}
	return nil
}

// field returns a trimmed cell, or "" when the row is short.
func (h header) field(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// rows calls fn for each data record with its 1-based line number.
func rows(r *csv.Reader, fn func(line int, record []string) error) error {
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapParse(err)
		}
		line, _ := r.FieldPos(0)
		if isBlank(record) {
			continue
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseNodeID(line int, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, parseError(line, "invalid node id %q", s).
			Context("value", s).
			Build()
	}
	return id, nil
}

func parseFloat(line int, col, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, parseError(line, "invalid %s value %q", col, s).
			Context("column", col).
			Context("value", s).
			Build()
	}
	return v, nil
}

func parseTime(line int, col, s, layout string) (time.Time, error) {
	if layout != "" {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	} else {
		for _, l := range fallbackTimeLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, parseError(line, "invalid %s %q", col, s).
		Context("column", col).
		Context("value", s).
		Context("layout", layout).
		Build()
}

func parseError(line int, format string, args ...any) *errors.ErrorBuilder {
	return errors.Newf(format, args...).
		Component(componentName).
		Category(errors.CategoryFileParsing).
		Context("line", line)
}

func wrapParse(err error) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryFileParsing).
		Build()
}

// openFile opens path and returns a closer that logs close failures.
func openFile(path string) (*os.File, func(), error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is an operator supplied input file
	if err != nil {
		return nil, nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return f, func() {
		if err := f.Close(); err != nil {
			logger.Global().Module(componentName).Warn("failed to close input file",
				logger.String("path", path), logger.Error(err))
		}
	}, nil
}
