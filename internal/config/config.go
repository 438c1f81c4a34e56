package config

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/layout"
	"gallery3d/internal/nav"
	"gallery3d/internal/scene"
)

// Config is the root configuration struct
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Layout LayoutConfig `mapstructure:"layout" yaml:"layout"`
	Nav    nav.Config   `mapstructure:"nav" yaml:"nav"`
	Scene  SceneConfig  `mapstructure:"scene" yaml:"scene"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP and tick settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	TickHz          float64       `mapstructure:"tickHz" yaml:"tickHz"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// LayoutConfig holds the default layout request and RNG seed
type LayoutConfig struct {
	Request layout.Request `mapstructure:"request" yaml:"request"`
	// Seed 0 seeds from the clock
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// SceneConfig holds item placement settings
type SceneConfig struct {
	HeightClamp float64     `mapstructure:"heightClamp" yaml:"heightClamp"`
	Standoff    float64     `mapstructure:"standoff" yaml:"standoff"`
	Offset      vector.Vec3 `mapstructure:"offset" yaml:"offset"`
	RotateDeg   float64     `mapstructure:"rotateDeg" yaml:"rotateDeg"`
}

// Adjuster builds the placement chain: rotate, then offset, then clamp
// height so the clamp band holds for the final position.
func (s SceneConfig) Adjuster() scene.Adjuster {
	var adj []scene.Adjuster
	if s.RotateDeg != 0 {
		adj = append(adj, scene.Rotate{Degrees: s.RotateDeg})
	}
	if !s.Offset.IsZero() {
		adj = append(adj, scene.Offset{Delta: s.Offset})
	}
	if s.HeightClamp > 0 {
		adj = append(adj, scene.HeightClamp{Limit: s.HeightClamp})
	}
	return &scene.Chain{Adjusters: adj}
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Load reads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "config: read")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tickHz", 60.0)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("layout.request.itemCount", 0)
	v.SetDefault("layout.request.radiusMin", 30.0)
	v.SetDefault("layout.request.radiusMax", 120.0)
	v.SetDefault("layout.request.minDistance", 12.0)
	v.SetDefault("layout.request.heightRange", 100.0)
	v.SetDefault("layout.request.heightCenter", 0.0)
	v.SetDefault("layout.seed", 0)

	d := nav.DefaultConfig()
	v.SetDefault("nav.moveStep", d.MoveStep)
	v.SetDefault("nav.flyStep", d.FlyStep)
	v.SetDefault("nav.arriveThreshold", d.ArriveThreshold)
	v.SetDefault("nav.smoothing", d.Smoothing)
	v.SetDefault("nav.introEpsilon", d.IntroEpsilon)
	setVec(v, "nav.introStart", d.IntroStart.X, d.IntroStart.Y, d.IntroStart.Z)
	setVec(v, "nav.introEnd", d.IntroEnd.X, d.IntroEnd.Y, d.IntroEnd.Z)
	setVec(v, "nav.introFocus", d.IntroFocus.X, d.IntroFocus.Y, d.IntroFocus.Z)
	v.SetDefault("nav.skipIntro", false)

	v.SetDefault("scene.heightClamp", 50.0)
	v.SetDefault("scene.standoff", 10.0)
	setVec(v, "scene.offset", 0, 0, 0)
	v.SetDefault("scene.rotateDeg", 0.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func setVec(v *viper.Viper, key string, x, y, z float64) {
	v.SetDefault(key+".x", x)
	v.SetDefault(key+".y", y)
	v.SetDefault(key+".z", z)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.TickHz <= 0 {
		return errors.New("config: server.tickHz must be positive")
	}
	if err := c.Nav.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.Scene.HeightClamp < 0 {
		return errors.New("config: scene.heightClamp must not be negative")
	}
	if !c.Scene.Offset.IsFinite() || math.IsNaN(c.Scene.RotateDeg) || math.IsInf(c.Scene.RotateDeg, 0) {
		return errors.New("config: scene.offset and scene.rotateDeg must be finite")
	}
	if c.Scene.Standoff < 0 {
		return errors.New("config: scene.standoff must not be negative")
	}
	if c.Layout.Request.ItemCount > 0 {
		if err := c.Layout.Request.Validate(); err != nil {
			return errors.Wrap(err, "config: layout.request")
		}
	}
	return nil
}
