package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configurable parameters for the application. It mirrors
// the YAML file layout; durations accept Go duration strings ("5s").
type Config struct {
	SC         SCConfig         `yaml:"sc"`
	Notice     NoticeConfig     `yaml:"notice"`
	ProxyApps  ProxyAppsConfig  `yaml:"proxy_apps"`
	Labelcheck LabelcheckConfig `yaml:"labelcheck"`
	Log        LogConfig        `yaml:"log"`
	Serve      ServeConfig      `yaml:"serve"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SCConfig locates the backend under test.
type SCConfig struct {
	IP          string `yaml:"sc_ip"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	SSHUsername string `yaml:"ssh_username"`
	SSHPassword string `yaml:"ssh_password"`
	// Token is a pre-issued session token. Interactive login is not supported.
	Token     string `yaml:"token"`
	VerifyTLS bool   `yaml:"verify_tls"`
}

// NoticeConfig is accepted for compatibility with shared config files.
type NoticeConfig struct {
	WebhookKey string `yaml:"webhook_key"`
}

// ProxyAppsConfig lists the proxy endpoints traffic is sent through.
type ProxyAppsConfig struct {
	// DataLabel is the [api, file] proxy pair.
	DataLabel []string `yaml:"data_label"`
}

// LabelcheckConfig tunes the verification run.
type LabelcheckConfig struct {
	CatalogueDir   string   `yaml:"catalogue_dir"`
	TestDataDir    string   `yaml:"test_data_dir"`
	Specifications []string `yaml:"specifications"`

	CopiesPerLabel  int           `yaml:"copies_per_label"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	RequestInterval time.Duration `yaml:"request_interval"`
	FilesPerLabel   int           `yaml:"files_per_label"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	UploadRetries   int           `yaml:"upload_retries"`
	UploadInterval  time.Duration `yaml:"upload_interval"`
	InitTimeout     time.Duration `yaml:"init_timeout"`
	LogWaitTimeout  time.Duration `yaml:"log_wait_timeout"`
	RecordRetries   int           `yaml:"record_retries"`
	RecordInterval  time.Duration `yaml:"record_interval"`
	VerifyWorkers   int           `yaml:"verify_workers"`
	CleanCommand    string        `yaml:"clean_command"`
	LoginAttempts   int           `yaml:"login_attempts"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestRetries int           `yaml:"request_retries"` // 0 disables retries
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	RateLimiterTTL time.Duration `yaml:"rate_limiter_ttl"`
	PollCadence    time.Duration `yaml:"poll_cadence"`

	Gate                    string `yaml:"gate"`
	LegacyUnmatchedFallback bool   `yaml:"legacy_unmatched_fallback"`

	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// LogConfig selects log level and sinks.
type LogConfig struct {
	Level string `yaml:"level"`
	// File, when set, receives JSON lines at debug level.
	File    string `yaml:"file"`
	NoColor bool   `yaml:"no_color"`
}

// ServeConfig configures the target server.
type ServeConfig struct {
	Port             int           `yaml:"port"`
	TraceSize        int           `yaml:"trace_size"`
	TemplateEngine   string        `yaml:"template_engine"`
	ResponseTemplate string        `yaml:"response_template"`
	LatencyFixed     time.Duration `yaml:"latency_fixed"`
	LatencyJitter    time.Duration `yaml:"latency_jitter"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig exposes Prometheus metrics during verification runs.
type MetricsConfig struct {
	// Addr, when set, serves /metrics while checks run, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Labelcheck: LabelcheckConfig{
			CatalogueDir: "./catalogue",
			TestDataDir:  "./test_data",

			CopiesPerLabel: 5,
			MaxConcurrent:  5,
			FilesPerLabel:  8,
			SettleDelay:    3 * time.Second,
			UploadRetries:  3,
			UploadInterval: time.Second,
			InitTimeout:    15 * time.Second,
			LogWaitTimeout: 180 * time.Second,
			RecordRetries:  50,
			RecordInterval: 5 * time.Second,
			VerifyWorkers:  4,
			LoginAttempts:  5,
			RequestTimeout: 30 * time.Second,
			RequestRetries: 3,
			RateLimiterTTL: 10 * time.Minute,
			PollCadence:    500 * time.Millisecond,
			WatchDebounce:  500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
		Serve: ServeConfig{
			Port:            8080,
			TraceSize:       200,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// LoadConfig overlays the YAML file at path on DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// APIProxy returns the proxy API traffic is sent through.
func (c Config) APIProxy() string {
	if len(c.ProxyApps.DataLabel) < 1 {
		return ""
	}
	return strings.TrimSpace(c.ProxyApps.DataLabel[0])
}

// FileProxy returns the proxy file uploads are sent through.
func (c Config) FileProxy() string {
	if len(c.ProxyApps.DataLabel) < 2 {
		return ""
	}
	return strings.TrimSpace(c.ProxyApps.DataLabel[1])
}

// BackendURL is the management API base derived from sc_ip.
func (c Config) BackendURL() string {
	ip := strings.TrimSpace(c.SC.IP)
	if ip == "" {
		return ""
	}
	if strings.Contains(ip, "://") {
		return ip
	}
	return "https://" + ip
}

// Validate reports every setting that prevents a verification run.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SC.IP) == "" {
		errs = append(errs, errors.New("sc.sc_ip is required"))
	}
	if strings.TrimSpace(c.SC.Token) == "" {
		errs = append(errs, errors.New("sc.token is required"))
	}
	if len(c.ProxyApps.DataLabel) != 2 || c.APIProxy() == "" || c.FileProxy() == "" {
		errs = append(errs, errors.New("proxy_apps.data_label must list an api and a file proxy"))
	}
	if c.Labelcheck.CatalogueDir == "" {
		errs = append(errs, errors.New("labelcheck.catalogue_dir is required"))
	}
	if c.Labelcheck.CopiesPerLabel < 1 {
		errs = append(errs, fmt.Errorf("labelcheck.copies_per_label must be positive, got %d", c.Labelcheck.CopiesPerLabel))
	}
	if c.Labelcheck.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("labelcheck.max_concurrent must be positive, got %d", c.Labelcheck.MaxConcurrent))
	}
	if c.Labelcheck.FilesPerLabel < 1 {
		errs = append(errs, fmt.Errorf("labelcheck.files_per_label must be positive, got %d", c.Labelcheck.FilesPerLabel))
	}
	if c.Labelcheck.RecordRetries < 0 {
		errs = append(errs, fmt.Errorf("labelcheck.record_retries must not be negative, got %d", c.Labelcheck.RecordRetries))
	}
	if c.Labelcheck.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("labelcheck.rate_limit must not be negative, got %v", c.Labelcheck.RateLimit))
	}
	return errors.Join(errs...)
}
