package segmenter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/sweepseg/internal/sweep"
)

// Default tuning constants shared by all sensor models. The angular
// threshold and cluster acceptance bounds come straight from the ground
// segmentation paper and survive unchanged across sensor generations.
const (
	// DefaultSegmentThetaDeg is the angular-consistency threshold: a
	// neighbour joins a segment only when the triangle angle at the far
	// point exceeds this. Lowering it over-segments; raising it merges
	// across depth discontinuities.
	DefaultSegmentThetaDeg = 60.0

	// DefaultSegmentValidPointNum is the minimum cluster size considered
	// when the cluster also spans enough beams.
	DefaultSegmentValidPointNum = 5

	// DefaultSegmentValidLineNum is the beam-span requirement paired with
	// DefaultSegmentValidPointNum.
	DefaultSegmentValidLineNum = 3

	// DefaultSegmentGoodPointNum accepts a cluster outright regardless of
	// beam span.
	DefaultSegmentGoodPointNum = 30

	// DefaultMinRange discards returns closer than this (sensor housing
	// reflections).
	DefaultMinRange = 1.0

	// GroundAngleToleranceDeg is the slope tolerance about the mount angle
	// within which an inter-ring segment counts as ground.
	GroundAngleToleranceDeg = 10.0
)

// SensorParams is the immutable geometry and tuning record for one sensor
// model. Validate once at construction; the segmenter holds it for its
// lifetime.
type SensorParams struct {
	Model string `json:"model"`

	NumBeams    int     `json:"num_beams"`    // rows in the range image
	HorizonBins int     `json:"horizon_bins"` // columns per revolution
	AngResX     float64 `json:"ang_res_x"`    // horizontal resolution (degrees)
	AngResY     float64 `json:"ang_res_y"`    // vertical resolution (degrees)
	AngBottom   float64 `json:"ang_bottom"`   // vertical FOV lower offset (degrees)

	// GroundBeamIndex is the highest beam considered when testing for
	// ground. Tied to mounting height; see the per-model registry.
	GroundBeamIndex int `json:"ground_beam_index"`

	MinRange      float64 `json:"min_range"`       // meters
	MountAngleDeg float64 `json:"mount_angle_deg"` // sensor tilt from horizontal

	SegmentThetaDeg      float64 `json:"segment_theta_deg"`
	SegmentValidPointNum int     `json:"segment_valid_point_num"`
	SegmentValidLineNum  int     `json:"segment_valid_line_num"`

	// UseRing selects the driver's ring channel for row lookup instead of
	// deriving rows from elevation. When set, AngResY and AngBottom are
	// not used for projection.
	UseRing bool `json:"use_ring"`
}

// SupportedSensorModels is the compiled-in registry of sensor geometries.
var SupportedSensorModels = map[string]SensorParams{
	"vlp-16": {
		Model:           "vlp-16",
		NumBeams:        16,
		HorizonBins:     1800,
		AngResX:         0.2,
		AngResY:         2.0,
		AngBottom:       15.0 + 0.1,
		GroundBeamIndex: 7,
	},
	"hdl-32e": {
		Model:           "hdl-32e",
		NumBeams:        32,
		HorizonBins:     1800,
		AngResX:         360.0 / 1800.0,
		AngResY:         41.33 / 31.0,
		AngBottom:       30.67,
		GroundBeamIndex: 20,
	},
	"vls-128": {
		Model:           "vls-128",
		NumBeams:        128,
		HorizonBins:     1800,
		AngResX:         0.2,
		AngResY:         0.3,
		AngBottom:       25.0,
		GroundBeamIndex: 10,
	},
	"os1-16": {
		Model:           "os1-16",
		NumBeams:        16,
		HorizonBins:     1024,
		AngResX:         360.0 / 1024.0,
		AngResY:         33.2 / 15.0,
		AngBottom:       16.6 + 0.1,
		GroundBeamIndex: 7,
	},
	"os1-64": {
		Model:           "os1-64",
		NumBeams:        64,
		HorizonBins:     1024,
		AngResX:         360.0 / 1024.0,
		AngResY:         33.2 / 63.0,
		AngBottom:       16.6 + 0.1,
		GroundBeamIndex: 15,
	},
}

// SensorParamsFor looks up a registry model by slug and fills in the shared
// tuning defaults.
func SensorParamsFor(slug string) (SensorParams, bool) {
	p, ok := SupportedSensorModels[slug]
	if !ok {
		return SensorParams{}, false
	}
	p.MinRange = DefaultMinRange
	p.SegmentThetaDeg = DefaultSegmentThetaDeg
	p.SegmentValidPointNum = DefaultSegmentValidPointNum
	p.SegmentValidLineNum = DefaultSegmentValidLineNum
	return p, true
}

// Validate checks the record for internal consistency. A SensorParams that
// fails validation must not reach New.
func (p SensorParams) Validate() error {
	if p.NumBeams <= 0 {
		return fmt.Errorf("num_beams must be positive, got %d", p.NumBeams)
	}
	if p.HorizonBins <= 0 || p.HorizonBins%2 != 0 {
		return fmt.Errorf("horizon_bins must be positive and even, got %d", p.HorizonBins)
	}
	if p.AngResX <= 0 || p.AngResY <= 0 {
		return fmt.Errorf("angular resolutions must be positive, got x=%v y=%v", p.AngResX, p.AngResY)
	}
	if p.GroundBeamIndex < 1 || p.GroundBeamIndex >= p.NumBeams {
		return fmt.Errorf("ground_beam_index must be in [1,%d), got %d", p.NumBeams, p.GroundBeamIndex)
	}
	if p.MinRange < 0 {
		return fmt.Errorf("min_range must be non-negative, got %v", p.MinRange)
	}
	if p.SegmentThetaDeg <= 0 || p.SegmentThetaDeg >= 90 {
		return fmt.Errorf("segment_theta_deg must be in (0,90), got %v", p.SegmentThetaDeg)
	}
	if p.SegmentValidPointNum <= 0 || p.SegmentValidLineNum <= 0 {
		return fmt.Errorf("segment validity thresholds must be positive")
	}
	return nil
}

// segmentTheta returns the acceptance threshold in radians.
func (p SensorParams) segmentTheta() float64 {
	return p.SegmentThetaDeg * sweep.DegToRad
}

// alphaX and alphaY are the angular resolutions in radians, as used by the
// segmentation predicate.
func (p SensorParams) alphaX() float64 { return p.AngResX * sweep.DegToRad }
func (p SensorParams) alphaY() float64 { return p.AngResY * sweep.DegToRad }

// Grid returns the synthetic-scene geometry matching this sensor.
func (p SensorParams) Grid() sweep.Grid {
	return sweep.Grid{
		Rings:     p.NumBeams,
		Bins:      p.HorizonBins,
		ResXDeg:   p.AngResX,
		ResYDeg:   p.AngResY,
		BottomDeg: p.AngBottom,
	}
}

// ParamsOverride is the JSON schema for site tuning files. Fields omitted
// from the JSON retain their registry defaults, so partial configs are
// safe.
type ParamsOverride struct {
	MountAngleDeg        *float64 `json:"mount_angle_deg,omitempty"`
	MinRange             *float64 `json:"min_range,omitempty"`
	SegmentThetaDeg      *float64 `json:"segment_theta_deg,omitempty"`
	SegmentValidPointNum *int     `json:"segment_valid_point_num,omitempty"`
	SegmentValidLineNum  *int     `json:"segment_valid_line_num,omitempty"`
	GroundBeamIndex      *int     `json:"ground_beam_index,omitempty"`
	UseRing              *bool    `json:"use_ring,omitempty"`
}

// LoadParamsOverride loads a ParamsOverride from a JSON file. The path must
// carry a .json extension and stay under the size cap.
func LoadParamsOverride(path string) (*ParamsOverride, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("override file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat override file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("override file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read override file: %w", err)
	}

	ov := &ParamsOverride{}
	if err := json.Unmarshal(data, ov); err != nil {
		return nil, fmt.Errorf("failed to parse override JSON: %w", err)
	}
	return ov, nil
}

// Apply overlays the override onto p and returns the result. p itself is
// not modified.
func (ov *ParamsOverride) Apply(p SensorParams) SensorParams {
	if ov == nil {
		return p
	}
	if ov.MountAngleDeg != nil {
		p.MountAngleDeg = *ov.MountAngleDeg
	}
	if ov.MinRange != nil {
		p.MinRange = *ov.MinRange
	}
	if ov.SegmentThetaDeg != nil {
		p.SegmentThetaDeg = *ov.SegmentThetaDeg
	}
	if ov.SegmentValidPointNum != nil {
		p.SegmentValidPointNum = *ov.SegmentValidPointNum
	}
	if ov.SegmentValidLineNum != nil {
		p.SegmentValidLineNum = *ov.SegmentValidLineNum
	}
	if ov.GroundBeamIndex != nil {
		p.GroundBeamIndex = *ov.GroundBeamIndex
	}
	if ov.UseRing != nil {
		p.UseRing = *ov.UseRing
	}
	return p
}
