package config

import "time"

// Config holds application settings (in-memory representation).
// Loading from file/env is handled by Load in load.go.
type Config struct {
	APIBase   string  `mapstructure:"api_base" yaml:"api_base"`
	SiteBase  string  `mapstructure:"site_base" yaml:"site_base"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests/sec to the price service

	// Request coordination.
	RequestTimeout   time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	DebounceInterval time.Duration `mapstructure:"debounce_interval" yaml:"debounce_interval"`
	MinQueryLength   int           `mapstructure:"min_query_length" yaml:"min_query_length"`

	// Rendering.
	Animate           bool          `mapstructure:"animate" yaml:"animate"`
	AnimationDuration time.Duration `mapstructure:"animation_duration" yaml:"animation_duration"`
	FrameInterval     time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	ToggleDebounce    time.Duration `mapstructure:"toggle_debounce" yaml:"toggle_debounce"`
	DefaultUnit       int           `mapstructure:"default_unit" yaml:"default_unit"`   // grams: 1 | 8 | 10 | 100
	DefaultGrade      string        `mapstructure:"default_grade" yaml:"default_grade"` // 24K | 22K | 18K

	// Cache store.
	CacheBackend  string `mapstructure:"cache_backend" yaml:"cache_backend"` // sqlite | memory | redis
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`

	ProbeInterval time.Duration `mapstructure:"probe_interval" yaml:"probe_interval"`
	ShareCommand  string        `mapstructure:"share_command" yaml:"share_command"` // optional system share helper
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
	DefaultCity   string        `mapstructure:"default_city" yaml:"default_city"`
	Cities        []string      `mapstructure:"cities" yaml:"cities"` // prefetch warm-up list
}

// LockDuration is how long unit/grade toggles stay disabled after one is applied.
func (c *Config) LockDuration() time.Duration {
	return c.AnimationDuration + 50*time.Millisecond
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		APIBase:           "https://gold-price-backend-vod4.onrender.com",
		SiteBase:          "https://goldrateindia.co.in",
		RateLimit:         5,
		RequestTimeout:    8 * time.Second,
		DebounceInterval:  250 * time.Millisecond,
		MinQueryLength:    2,
		Animate:           true,
		AnimationDuration: 600 * time.Millisecond,
		FrameInterval:     16 * time.Millisecond,
		ToggleDebounce:    120 * time.Millisecond,
		DefaultUnit:       1,
		DefaultGrade:      "24K",
		CacheBackend:      "sqlite",
		RedisAddr:         "localhost:6379",
		ProbeInterval:     15 * time.Second,
		LogLevel:          "info",
		DefaultCity:       "India",
		Cities: []string{
			"Chennai",
			"Mumbai",
			"Delhi",
			"Bangalore",
			"Hyderabad",
			"Kolkata",
			"Pune",
			"Ahmedabad",
			"Jaipur",
			"Lucknow",
			"Chandigarh",
			"Kanpur",
			"Indore",
			"Bhopal",
			"Kochi",
			"Trivandrum",
			"Coimbatore",
		},
	}
}
