// Machine settings consumed by the motion core. The settings file is
// written by an external configuration tool; this package only loads
// and validates it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

const (
	NumAxes = 4

	XAxis = 0
	YAxis = 1
	ZAxis = 2
	AAxis = 3
)

var AxisNames = [NumAxes]string{"X", "Y", "Z", "A"}

// AxisConfig holds the per-axis machine limits and homing geometry.
// Distances are in configured linear units, rates in units/s.
type AxisConfig struct {
	StepsPerUnit float64 `toml:"steps_per_unit" yaml:"steps_per_unit"`
	MaxVelocity  float64 `toml:"max_velocity" yaml:"max_velocity"`
	MaxAccel     float64 `toml:"max_accel" yaml:"max_accel"`
	TravelMin    float64 `toml:"travel_min" yaml:"travel_min"`
	TravelMax    float64 `toml:"travel_max" yaml:"travel_max"`
	HomeDir      int     `toml:"home_dir" yaml:"home_dir"`
	HomePosition float64 `toml:"home_position" yaml:"home_position"`
	SeekRate     float64 `toml:"seek_rate" yaml:"seek_rate"`
	LocateRate   float64 `toml:"locate_rate" yaml:"locate_rate"`
	Pulloff      float64 `toml:"pulloff" yaml:"pulloff"`
}

type Config struct {
	TickPeriod        float64 `toml:"tick_period" yaml:"tick_period"`
	BufferDepth       int     `toml:"buffer_depth" yaml:"buffer_depth"`
	JunctionDeviation float64 `toml:"junction_deviation" yaml:"junction_deviation"`
	ArcTolerance      float64 `toml:"arc_tolerance" yaml:"arc_tolerance"`
	MaxArcSegments    int     `toml:"max_arc_segments" yaml:"max_arc_segments"`
	MinArcRadius      float64 `toml:"min_arc_radius" yaml:"min_arc_radius"`
	MaxArcRadius      float64 `toml:"max_arc_radius" yaml:"max_arc_radius"`
	JerkLimit         float64 `toml:"jerk_limit" yaml:"jerk_limit"`
	HomingDebounce    float64 `toml:"homing_debounce" yaml:"homing_debounce"`
	HomingTimeout     float64 `toml:"homing_timeout" yaml:"homing_timeout"`

	Axes [NumAxes]AxisConfig `toml:"axes" yaml:"axes"`
}

// Default returns a conservative profile for a small 4-axis mill.
func Default() *Config {
	cfg := &Config{
		TickPeriod:        0.001,
		BufferDepth:       16,
		JunctionDeviation: 0.02,
		ArcTolerance:      0.002,
		MaxArcSegments:    256,
		MinArcRadius:      0.001,
		MaxArcRadius:      10000.0,
		JerkLimit:         50000.0,
		HomingDebounce:    0.005,
		HomingTimeout:     30.0,
	}
	for i := 0; i < NumAxes; i++ {
		cfg.Axes[i] = AxisConfig{
			StepsPerUnit: 80.0,
			MaxVelocity:  200.0,
			MaxAccel:     1000.0,
			TravelMin:    0.0,
			TravelMax:    300.0,
			HomeDir:      -1,
			HomePosition: 0.0,
			SeekRate:     50.0,
			LocateRate:   5.0,
			Pulloff:      2.0,
		}
	}
	// Rotary axis travels further and homes to its own switch side
	cfg.Axes[AAxis].TravelMax = 360.0
	return cfg
}

// Load reads a settings file, picking the decoder from the extension
// (.toml, .yaml or .yml). The result starts from Default so partial
// files only override what they mention.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode settings %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode settings %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem in the file at once rather than
// stopping at the first.
func (cfg *Config) Validate() error {
	var err error
	if cfg.TickPeriod <= 0 {
		err = multierr.Append(err, fmt.Errorf("tick_period must be positive, got %v", cfg.TickPeriod))
	}
	if cfg.BufferDepth < 2 {
		err = multierr.Append(err, fmt.Errorf("buffer_depth must be at least 2, got %d", cfg.BufferDepth))
	}
	if cfg.JunctionDeviation <= 0 {
		err = multierr.Append(err, fmt.Errorf("junction_deviation must be positive, got %v", cfg.JunctionDeviation))
	}
	if cfg.ArcTolerance <= 0 {
		err = multierr.Append(err, fmt.Errorf("arc_tolerance must be positive, got %v", cfg.ArcTolerance))
	}
	if cfg.MaxArcSegments < 3 {
		err = multierr.Append(err, fmt.Errorf("max_arc_segments must be at least 3, got %d", cfg.MaxArcSegments))
	}
	if cfg.JerkLimit <= 0 {
		err = multierr.Append(err, fmt.Errorf("jerk_limit must be positive, got %v", cfg.JerkLimit))
	}
	for i, ax := range cfg.Axes {
		name := AxisNames[i]
		if ax.StepsPerUnit <= 0 {
			err = multierr.Append(err, fmt.Errorf("axis %s: steps_per_unit must be positive, got %v", name, ax.StepsPerUnit))
		}
		if ax.MaxVelocity <= 0 {
			err = multierr.Append(err, fmt.Errorf("axis %s: max_velocity must be positive, got %v", name, ax.MaxVelocity))
		}
		if ax.MaxAccel <= 0 {
			err = multierr.Append(err, fmt.Errorf("axis %s: max_accel must be positive, got %v", name, ax.MaxAccel))
		}
		if ax.TravelMax <= ax.TravelMin {
			err = multierr.Append(err, fmt.Errorf("axis %s: travel_max %v must exceed travel_min %v", name, ax.TravelMax, ax.TravelMin))
		}
		if ax.HomeDir != 1 && ax.HomeDir != -1 {
			err = multierr.Append(err, fmt.Errorf("axis %s: home_dir must be -1 or 1, got %d", name, ax.HomeDir))
		}
		if ax.SeekRate <= 0 || ax.LocateRate <= 0 {
			err = multierr.Append(err, fmt.Errorf("axis %s: homing rates must be positive", name))
		}
	}
	return err
}
