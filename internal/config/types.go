package config

import "time"

// Config is the fully resolved engine configuration.
type Config struct {
	StarCount int `yaml:"star_count" koanf:"star_count"`

	MinSize       float64 `yaml:"min_size" koanf:"min_size"`
	MaxSize       float64 `yaml:"max_size" koanf:"max_size"`
	MinOpacity    float64 `yaml:"min_opacity" koanf:"min_opacity"`
	MaxOpacity    float64 `yaml:"max_opacity" koanf:"max_opacity"`
	MinPulseSpeed float64 `yaml:"min_pulse_speed" koanf:"min_pulse_speed"`
	MaxPulseSpeed float64 `yaml:"max_pulse_speed" koanf:"max_pulse_speed"`

	// Drift speeds are in pixels per second.
	MinDriftSpeed      float64 `yaml:"min_drift_speed" koanf:"min_drift_speed"`
	MaxDriftSpeed      float64 `yaml:"max_drift_speed" koanf:"max_drift_speed"`
	MaxDriftPerTick    float64 `yaml:"max_drift_per_tick" koanf:"max_drift_per_tick"`
	DriftPerturbChance float64 `yaml:"drift_perturb_chance" koanf:"drift_perturb_chance"`
	DriftPerturbAmount float64 `yaml:"drift_perturb_amount" koanf:"drift_perturb_amount"`

	ParallaxStrength float64 `yaml:"parallax_strength" koanf:"parallax_strength"`
	SpringStrength   float64 `yaml:"spring_strength" koanf:"spring_strength"`
	DampingFactor    float64 `yaml:"damping_factor" koanf:"damping_factor"`
	MaxVelocity      float64 `yaml:"max_velocity" koanf:"max_velocity"`

	FadeDuration    time.Duration `yaml:"fade_duration" koanf:"fade_duration"`
	FadeRate        float64       `yaml:"fade_rate" koanf:"fade_rate"`
	MaxFadingStars  int           `yaml:"max_fading_stars" koanf:"max_fading_stars"`
	OffscreenBuffer float64       `yaml:"offscreen_buffer" koanf:"offscreen_buffer"`

	TrailThreshold float64 `yaml:"trail_threshold" koanf:"trail_threshold"`
	GlowThreshold  float64 `yaml:"glow_threshold" koanf:"glow_threshold"`
	OpacityFloor   float64 `yaml:"opacity_floor" koanf:"opacity_floor"`

	ResizeThreshold float64       `yaml:"resize_threshold" koanf:"resize_threshold"`
	ResizeDebounce  time.Duration `yaml:"resize_debounce" koanf:"resize_debounce"`

	MaxFPS       int           `yaml:"max_fps" koanf:"max_fps"`
	MaxDeltaTime time.Duration `yaml:"max_delta_time" koanf:"max_delta_time"`
	PixelRatio   float64       `yaml:"pixel_ratio" koanf:"pixel_ratio"`

	Palette    []string `yaml:"palette" koanf:"palette"`
	Background string   `yaml:"background" koanf:"background"`

	ScrollFrequency float64 `yaml:"scroll_frequency" koanf:"scroll_frequency"`
	ScrollDamping   float64 `yaml:"scroll_damping" koanf:"scroll_damping"`
	ScrollStep      float64 `yaml:"scroll_step" koanf:"scroll_step"`

	EnableTrails             bool `yaml:"enable_trails" koanf:"enable_trails"`
	EnableTwinkle            bool `yaml:"enable_twinkle" koanf:"enable_twinkle"`
	EnableDrift              bool `yaml:"enable_drift" koanf:"enable_drift"`
	EnableParallax           bool `yaml:"enable_parallax" koanf:"enable_parallax"`
	RegenerateOffscreenStars bool `yaml:"regenerate_offscreen_stars" koanf:"regenerate_offscreen_stars"`
	UseDateSeed              bool `yaml:"use_date_seed" koanf:"use_date_seed"`
	DisableAnimations        bool `yaml:"disable_animations" koanf:"disable_animations"`

	Persistence Persistence `yaml:"persistence" koanf:"persistence"`
}

// Persistence holds session store settings.
type Persistence struct {
	Enabled      bool          `yaml:"enabled" koanf:"enabled"`
	StorageKey   string        `yaml:"storage_key" koanf:"storage_key"`
	ScrollKey    string        `yaml:"scroll_key" koanf:"scroll_key"`
	LastVisitKey string        `yaml:"last_visit_key" koanf:"last_visit_key"`
	SaveInterval time.Duration `yaml:"save_interval" koanf:"save_interval"`
	MaxAge       time.Duration `yaml:"max_age" koanf:"max_age"`
}

// Overrides is a partial Config. A nil field keeps the base value.
type Overrides struct {
	StarCount *int `koanf:"star_count"`

	MinSize       *float64 `koanf:"min_size"`
	MaxSize       *float64 `koanf:"max_size"`
	MinOpacity    *float64 `koanf:"min_opacity"`
	MaxOpacity    *float64 `koanf:"max_opacity"`
	MinPulseSpeed *float64 `koanf:"min_pulse_speed"`
	MaxPulseSpeed *float64 `koanf:"max_pulse_speed"`

	MinDriftSpeed      *float64 `koanf:"min_drift_speed"`
	MaxDriftSpeed      *float64 `koanf:"max_drift_speed"`
	MaxDriftPerTick    *float64 `koanf:"max_drift_per_tick"`
	DriftPerturbChance *float64 `koanf:"drift_perturb_chance"`
	DriftPerturbAmount *float64 `koanf:"drift_perturb_amount"`

	ParallaxStrength *float64 `koanf:"parallax_strength"`
	SpringStrength   *float64 `koanf:"spring_strength"`
	DampingFactor    *float64 `koanf:"damping_factor"`
	MaxVelocity      *float64 `koanf:"max_velocity"`

	FadeDuration    *time.Duration `koanf:"fade_duration"`
	FadeRate        *float64       `koanf:"fade_rate"`
	MaxFadingStars  *int           `koanf:"max_fading_stars"`
	OffscreenBuffer *float64       `koanf:"offscreen_buffer"`

	TrailThreshold *float64 `koanf:"trail_threshold"`
	GlowThreshold  *float64 `koanf:"glow_threshold"`
	OpacityFloor   *float64 `koanf:"opacity_floor"`

	ResizeThreshold *float64       `koanf:"resize_threshold"`
	ResizeDebounce  *time.Duration `koanf:"resize_debounce"`

	MaxFPS       *int           `koanf:"max_fps"`
	MaxDeltaTime *time.Duration `koanf:"max_delta_time"`
	PixelRatio   *float64       `koanf:"pixel_ratio"`

	Palette    []string `koanf:"palette"`
	Background *string  `koanf:"background"`

	ScrollFrequency *float64 `koanf:"scroll_frequency"`
	ScrollDamping   *float64 `koanf:"scroll_damping"`
	ScrollStep      *float64 `koanf:"scroll_step"`

	EnableTrails             *bool `koanf:"enable_trails"`
	EnableTwinkle            *bool `koanf:"enable_twinkle"`
	EnableDrift              *bool `koanf:"enable_drift"`
	EnableParallax           *bool `koanf:"enable_parallax"`
	RegenerateOffscreenStars *bool `koanf:"regenerate_offscreen_stars"`
	UseDateSeed              *bool `koanf:"use_date_seed"`
	DisableAnimations        *bool `koanf:"disable_animations"`

	Persistence PersistenceOverrides `koanf:"persistence"`
}

// PersistenceOverrides is a partial Persistence.
type PersistenceOverrides struct {
	Enabled      *bool          `koanf:"enabled"`
	StorageKey   *string        `koanf:"storage_key"`
	ScrollKey    *string        `koanf:"scroll_key"`
	LastVisitKey *string        `koanf:"last_visit_key"`
	SaveInterval *time.Duration `koanf:"save_interval"`
	MaxAge       *time.Duration `koanf:"max_age"`
}
