package detection

import (
	"strings"
)

// Species holds a parsed classifier label.
type Species struct {
	ScientificName string // e.g., "Turdus merula"
	CommonName     string // e.g., "Common Blackbird"
	Code           string // eBird species code, empty for custom models
}

// ParseSpeciesLabel splits a classifier label into its parts.
//
// Supported formats:
//   - "ScientificName_CommonName_SpeciesCode"
//   - "ScientificName_CommonName"
//   - a bare code or common name
func ParseSpeciesLabel(label string) Species {
	label = strings.TrimSpace(strings.ReplaceAll(label, "\r", ""))
	if label == "" {
		return Species{}
	}

	parts := strings.SplitN(label, "_", 3)
	switch len(parts) {
	case 3:
		return Species{ScientificName: parts[0], CommonName: parts[1], Code: parts[2]}
	case 2:
		return Species{ScientificName: parts[0], CommonName: parts[1]}
	}

	// A single lowercase token without spaces is taken as a species code.
	if !strings.Contains(label, " ") && label == strings.ToLower(label) {
		return Species{Code: label}
	}
	return Species{CommonName: label}
}

// Key returns the identifier used to group detections: the species code when
// present, otherwise the common name, otherwise the scientific name.
func (s Species) Key() string {
	switch {
	case s.Code != "":
		return s.Code
	case s.CommonName != "":
		return s.CommonName
	default:
		return s.ScientificName
	}
}

// String returns the common name, falling back to the scientific name.
func (s Species) String() string {
	if s.CommonName != "" {
		return s.CommonName
	}
	if s.ScientificName != "" {
		return s.ScientificName
	}
	return s.Code
}
