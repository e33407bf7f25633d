package records

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
)

// LoadDetections reads a detection file from disk.
func LoadDetections(path string, opts Options) ([]detection.Detection, error) {
	f, closeFile, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFile()
	return ReadDetections(f, opts)
}

// ReadDetections reads classifier detections. The species key comes from
// species_code when present, otherwise from species_name_en, which may hold a
// full classifier label. Rows are validated as they are read.
func ReadDetections(r io.Reader, opts Options) ([]detection.Detection, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if err := h.require(ColNode, ColBeginTime, ColEndTime); err != nil {
		return nil, err
	}
	if !h.has(ColSpeciesCode) && !h.has(ColSpeciesNameEN) {
		return nil, parseError(1, "missing species column, need %q or %q", ColSpeciesCode, ColSpeciesNameEN).Build()
	}

	var out []detection.Detection
	err = rows(cr, func(line int, record []string) error {
		d, err := readDetection(h, line, record, opts.TimeFormat)
		if err != nil {
			return err
		}
		if err := d.Validate(); err != nil {
			return errors.New(err).
				Component(componentName).
				Category(errors.CategoryInvalidInput).
				Context("line", line).
				Build()
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	opts.log().Debug("detections loaded", logger.Int("detections", len(out)))
	return out, nil
}

func readDetection(h header, line int, record []string, layout string) (detection.Detection, error) {
	node, err := parseNodeID(line, h.field(record, ColNode))
	if err != nil {
		return detection.Detection{}, err
	}

	code := h.field(record, ColSpeciesCode)
	name := h.field(record, ColSpeciesNameEN)
	if code == "" && name != "" {
		sp := detection.ParseSpeciesLabel(name)
		code = sp.Key()
		name = sp.String()
	}

	begin, err := parseTime(line, ColBeginTime, h.field(record, ColBeginTime), layout)
	if err != nil {
		return detection.Detection{}, err
	}
	end, err := parseTime(line, ColEndTime, h.field(record, ColEndTime), layout)
	if err != nil {
		return detection.Detection{}, err
	}

	d := detection.Detection{
		Node:        node,
		SpeciesCode: code,
		CommonName:  name,
		BeginTime:   begin,
		EndTime:     end,
	}
	if s := h.field(record, ColConfidence); s != "" {
		if d.Confidence, err = parseFloat(line, ColConfidence, s); err != nil {
			return detection.Detection{}, err
		}
	}
	return d, nil
}

// WriteDetections writes detections with RFC 3339 timestamps.
func WriteDetections(w io.Writer, ds []detection.Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColNode, ColSpeciesCode, ColSpeciesNameEN, ColBeginTime, ColEndTime, ColConfidence}); err != nil {
		return writeError(err)
	}
	for i := range ds {
		d := &ds[i]
		if err := cw.Write([]string{
			strconv.FormatInt(d.Node, 10),
			d.SpeciesCode,
			d.CommonName,
			d.BeginTime.Format(time.RFC3339Nano),
			d.EndTime.Format(time.RFC3339Nano),
			strconv.FormatFloat(d.Confidence, 'f', -1, 64),
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
