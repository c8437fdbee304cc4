package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "STARDRIFT_"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StarCount: 150,

		MinSize:       0.5,
		MaxSize:       1.8,
		MinOpacity:    0.3,
		MaxOpacity:    0.9,
		MinPulseSpeed: 0.5,
		MaxPulseSpeed: 1.5,

		MinDriftSpeed:      2,
		MaxDriftSpeed:      8,
		MaxDriftPerTick:    2,
		DriftPerturbChance: 0.5,
		DriftPerturbAmount: 0.1,

		ParallaxStrength: 0.3,
		SpringStrength:   0.08,
		DampingFactor:    0.85,
		MaxVelocity:      20,

		FadeDuration:    2 * time.Second,
		FadeRate:        0.02,
		MaxFadingStars:  5,
		OffscreenBuffer: 50,

		TrailThreshold: 0.5,
		GlowThreshold:  0.7,
		OpacityFloor:   0.01,

		ResizeThreshold: 0.2,
		ResizeDebounce:  250 * time.Millisecond,

		MaxFPS:       30,
		MaxDeltaTime: 100 * time.Millisecond,
		PixelRatio:   1,

		Palette:    []string{"#ffffff", "#cfe3ff", "#ffe9c4", "#c9d6ff", "#ffd1dc"},
		Background: "#05060f",

		ScrollFrequency: 6,
		ScrollDamping:   1,
		ScrollStep:      40,

		EnableTwinkle:            true,
		EnableDrift:              true,
		EnableParallax:           true,
		RegenerateOffscreenStars: true,
		UseDateSeed:              true,

		Persistence: Persistence{
			Enabled:      true,
			StorageKey:   "stardrift_config",
			ScrollKey:    "stardrift_scroll",
			LastVisitKey: "stardrift_last_visit",
			SaveInterval: 5 * time.Second,
			MaxAge:       7 * 24 * time.Hour,
		},
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Merge overlays o onto base and returns the result. base is not modified
// and no value is range-checked.
func Merge(base Config, o Overrides) Config {
	c := base
	c.Palette = append([]string(nil), base.Palette...)

	set(&c.StarCount, o.StarCount)
	set(&c.MinSize, o.MinSize)
	set(&c.MaxSize, o.MaxSize)
	set(&c.MinOpacity, o.MinOpacity)
	set(&c.MaxOpacity, o.MaxOpacity)
	set(&c.MinPulseSpeed, o.MinPulseSpeed)
	set(&c.MaxPulseSpeed, o.MaxPulseSpeed)
	set(&c.MinDriftSpeed, o.MinDriftSpeed)
	set(&c.MaxDriftSpeed, o.MaxDriftSpeed)
	set(&c.MaxDriftPerTick, o.MaxDriftPerTick)
	set(&c.DriftPerturbChance, o.DriftPerturbChance)
	set(&c.DriftPerturbAmount, o.DriftPerturbAmount)
	set(&c.ParallaxStrength, o.ParallaxStrength)
	set(&c.SpringStrength, o.SpringStrength)
	set(&c.DampingFactor, o.DampingFactor)
	set(&c.MaxVelocity, o.MaxVelocity)
	set(&c.FadeDuration, o.FadeDuration)
	set(&c.FadeRate, o.FadeRate)
	set(&c.MaxFadingStars, o.MaxFadingStars)
	set(&c.OffscreenBuffer, o.OffscreenBuffer)
	set(&c.TrailThreshold, o.TrailThreshold)
	set(&c.GlowThreshold, o.GlowThreshold)
	set(&c.OpacityFloor, o.OpacityFloor)
	set(&c.ResizeThreshold, o.ResizeThreshold)
	set(&c.ResizeDebounce, o.ResizeDebounce)
	set(&c.MaxFPS, o.MaxFPS)
	set(&c.MaxDeltaTime, o.MaxDeltaTime)
	set(&c.PixelRatio, o.PixelRatio)
	set(&c.Background, o.Background)
	set(&c.ScrollFrequency, o.ScrollFrequency)
	set(&c.ScrollDamping, o.ScrollDamping)
	set(&c.ScrollStep, o.ScrollStep)
	set(&c.EnableTrails, o.EnableTrails)
	set(&c.EnableTwinkle, o.EnableTwinkle)
	set(&c.EnableDrift, o.EnableDrift)
	set(&c.EnableParallax, o.EnableParallax)
	set(&c.RegenerateOffscreenStars, o.RegenerateOffscreenStars)
	set(&c.UseDateSeed, o.UseDateSeed)
	set(&c.DisableAnimations, o.DisableAnimations)

	set(&c.Persistence.Enabled, o.Persistence.Enabled)
	set(&c.Persistence.StorageKey, o.Persistence.StorageKey)
	set(&c.Persistence.ScrollKey, o.Persistence.ScrollKey)
	set(&c.Persistence.LastVisitKey, o.Persistence.LastVisitKey)
	set(&c.Persistence.SaveInterval, o.Persistence.SaveInterval)
	set(&c.Persistence.MaxAge, o.Persistence.MaxAge)

	if o.Palette != nil {
		c.Palette = append([]string(nil), o.Palette...)
	}
	return c
}

// Load reads overrides from the given YAML file, then overlays environment
// variable overrides (STARDRIFT_*), and merges both onto Default().
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// STARDRIFT_STAR_COUNT -> star_count, STARDRIFT_PERSISTENCE__ENABLED -> persistence.enabled
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading env overrides: %w", err)
	}

	var o Overrides
	if err := k.Unmarshal("", &o); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return Merge(Default(), o), nil
}

// Save writes the configuration to the given YAML file path.
func (c Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// FrameInterval is the minimum time between two rendered frames.
func (c Config) FrameInterval() time.Duration {
	if c.MaxFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.MaxFPS)
}

// uncappedTick is the frame period hosts schedule at when MaxFPS is off.
const uncappedTick = time.Second / 60

// TickInterval is the period hosts schedule frames at. It equals
// FrameInterval unless frames are uncapped, in which case it follows a
// typical display refresh.
func (c Config) TickInterval() time.Duration {
	if d := c.FrameInterval(); d > 0 {
		return d
	}
	return uncappedTick
}

// Colors parses the palette. Entries that are not valid hex colors are
// replaced with white so palette indices stay stable.
func (c Config) Colors() []colorful.Color {
	out := make([]colorful.Color, 0, len(c.Palette))
	for _, h := range c.Palette {
		col, err := colorful.Hex(h)
		if err != nil {
			col = colorful.Color{R: 1, G: 1, B: 1}
		}
		out = append(out, col)
	}
	if len(out) == 0 {
		out = append(out, colorful.Color{R: 1, G: 1, B: 1})
	}
	return out
}

// BackgroundColor parses Background, falling back to black.
func (c Config) BackgroundColor() colorful.Color {
	col, err := colorful.Hex(c.Background)
	if err != nil {
		return colorful.Color{}
	}
	return col
}
