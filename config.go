package kalman

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Params is the JSON form of the filter's model and noise parameters.
type Params struct {
	Dt              float64 `json:"dt"`
	AccelX          float64 `json:"accel_x"`
	AccelY          float64 `json:"accel_y"`
	XMeasurementStd float64 `json:"x_measurement_std"`
	YMeasurementStd float64 `json:"y_measurement_std"`
	AccelerationStd float64 `json:"acceleration_std"`

	// RoundState rounds the state to integers after every update.
	// Nil means true.
	RoundState *bool `json:"round_state,omitempty"`
}

// DefaultParams returns a 10 Hz tracker with unit acceleration on both
// axes, 0.1 measurement noise and unit acceleration noise.
func DefaultParams() Params {
	return Params{
		Dt:              0.1,
		AccelX:          1,
		AccelY:          1,
		XMeasurementStd: 0.1,
		YMeasurementStd: 0.1,
		AccelerationStd: 1,
	}
}

// LoadParams loads Params from a JSON file. Fields omitted from the file
// keep their DefaultParams values; unknown fields are rejected.
func LoadParams(path string) (Params, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Params{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Params{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return Params{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return Params{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	p := DefaultParams()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Params{}, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("invalid config file %s: %w", cleanPath, err)
	}
	return p, nil
}

// Validate reports whether NewFilter would accept p.
func (p Params) Validate() error {
	_, err := p.NewFilter()
	return err
}

// NewFilter builds a Filter from p. Options are applied after RoundState.
func (p Params) NewFilter(opts ...Option) (*Filter, error) {
	if p.RoundState != nil && !*p.RoundState {
		opts = append([]Option{WithoutRounding()}, opts...)
	}
	return NewFilter(p.Dt, p.AccelX, p.AccelY, p.XMeasurementStd, p.YMeasurementStd, p.AccelerationStd, opts...)
}
