// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tables

// Detector is the interface for table reconstruction algorithms. Only one
// (the geometric, six-phase reconstructor) ships today, but the page-level
// driver selects by name through the registry rather than constructing it
// directly, so an alternate algorithm can be swapped in later.
type Detector interface {
	// Detect reconstructs tables from a page's merged text elements and
	// coalesced ruled lines.
	Detect(elements []TextElement, lines []RuledLine) ([]Table, error)

	// Name returns the detector's registered name.
	Name() string

	// Configure applies cfg, replacing any prior configuration.
	Configure(cfg Config) error
}

// TextElement is the subset of xtract.TextElement the reconstructor needs.
// It is declared locally so that this package does not import xtract,
// keeping the dependency direction one-way (xtract depends on tables, not
// the reverse).
type TextElement struct {
	Text     string
	X, Y     float64
	Width    float64
	FontSize float64
}

// RuledLine is the subset of xtract.RuledLine the reconstructor needs.
type RuledLine struct {
	Horizontal  bool
	Axis        float64
	Lo, Hi      float64
	StrokeWidth float64
}

// Config holds Reconstructor tuning parameters, mirroring the extraction
// options a caller supplies at the page-level entry point.
type Config struct {
	ConfidenceThreshold float64
	MinRows             int
	MinCols             int
	CellMerging         bool
	RowTolerance        float64
	ColTolerance        float64
	MinColFrequency     int
	MaxRowGap           float64
}

// DefaultConfig returns the option defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.7,
		MinRows:             3,
		MinCols:             2,
		CellMerging:         true,
		RowTolerance:        2.0,
		ColTolerance:        3.0,
		MinColFrequency:     3,
		MaxRowGap:           20.0,
	}
}

// Registry holds registered detectors by name.
type Registry struct {
	detectors map[string]Detector
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// Register adds detector to the registry, replacing any previous
// registration under the same name.
func (r *Registry) Register(detector Detector) {
	r.detectors[detector.Name()] = detector
}

// Get retrieves a detector by name, or nil if none is registered.
func (r *Registry) Get(name string) Detector {
	return r.detectors[name]
}

// List returns the names of all registered detectors.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	return names
}

var globalRegistry = NewRegistry()

// RegisterDetector registers detector in the global registry.
func RegisterDetector(detector Detector) {
	globalRegistry.Register(detector)
}

// GetDetector retrieves a detector from the global registry by name.
func GetDetector(name string) Detector {
	return globalRegistry.Get(name)
}

func init() {
	RegisterDetector(NewGeometricDetector())
}
