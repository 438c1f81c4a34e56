package nav

import (
	"github.com/pkg/errors"

	"gallery3d/internal/geometry/vector"
)

// Config tunes the navigator. Distances are world units per tick.
type Config struct {
	// MoveStep is the displacement each set intent flag contributes in free-roam.
	MoveStep float64 `mapstructure:"moveStep" yaml:"moveStep"`
	// FlyStep is the fixed per-tick advance toward a target.
	FlyStep float64 `mapstructure:"flyStep" yaml:"flyStep"`
	// ArriveThreshold is the remaining distance below which the camera has arrived.
	ArriveThreshold float64 `mapstructure:"arriveThreshold" yaml:"arriveThreshold"`

	// Smoothing is the fraction of the remaining intro distance covered per tick.
	Smoothing    float64     `mapstructure:"smoothing" yaml:"smoothing"`
	IntroEpsilon float64     `mapstructure:"introEpsilon" yaml:"introEpsilon"`
	IntroStart   vector.Vec3 `mapstructure:"introStart" yaml:"introStart"`
	IntroEnd     vector.Vec3 `mapstructure:"introEnd" yaml:"introEnd"`
	IntroFocus   vector.Vec3 `mapstructure:"introFocus" yaml:"introFocus"`
	SkipIntro    bool        `mapstructure:"skipIntro" yaml:"skipIntro"`
}

// DefaultConfig returns the tuning the gallery ships with: half a unit per
// key per tick, one unit per tick toward a target, and a 2% intro ease.
func DefaultConfig() Config {
	return Config{
		MoveStep:        0.5,
		FlyStep:         1.0,
		ArriveThreshold: 0.5,
		Smoothing:       0.02,
		IntroEpsilon:    0.1,
		IntroStart:      vector.NewVec3(0, 40, 0),
		IntroEnd:        vector.NewVec3(0, 0, 20),
		IntroFocus:      vector.Zero,
	}
}

// Validate rejects non-positive steps and thresholds, a smoothing factor
// outside (0,1], and non-finite intro poses.
func (c Config) Validate() error {
	switch {
	case c.MoveStep <= 0:
		return errors.New("nav: moveStep must be positive")
	case c.FlyStep <= 0:
		return errors.New("nav: flyStep must be positive")
	case c.ArriveThreshold <= 0:
		return errors.New("nav: arriveThreshold must be positive")
	case c.Smoothing <= 0 || c.Smoothing > 1:
		return errors.New("nav: smoothing must be in (0,1]")
	case c.IntroEpsilon <= 0:
		return errors.New("nav: introEpsilon must be positive")
	case !c.IntroStart.IsFinite() || !c.IntroEnd.IsFinite() || !c.IntroFocus.IsFinite():
		return errors.New("nav: intro poses must be finite")
	}
	return nil
}
