package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// DefaultPath is where Load looks for the TOML file when no path is given.
const DefaultPath = "greetings.toml"

type Config struct {
	Roster    RosterConfig              `toml:"roster"`
	Template  TemplateConfig            `toml:"template"`
	Layout    LayoutConfig              `toml:"layout"`
	Fonts     FontsConfig               `toml:"fonts"`
	Upload    UploadConfig              `toml:"upload"`
	Gateway   GatewayConfig             `toml:"gateway"`
	Pacing    PacingConfig              `toml:"pacing"`
	Scraper   ScraperConfig             `toml:"scraper"`
	Server    ServerConfig              `toml:"server"`
	Log       LogConfig                 `toml:"log"`
	Occasions map[string]OccasionConfig `toml:"occasions"`
}

type RosterConfig struct {
	Path       string `toml:"path"`
	IgnoreYear bool   `toml:"ignore_year"`
}

type TemplateConfig struct {
	Path               string   `toml:"path"`
	FallbackImage      string   `toml:"fallback_image"`
	PlaceholderMarkers []string `toml:"placeholder_markers"`
	OutputDir          string   `toml:"output_dir"`
	JPEGQuality        int      `toml:"jpeg_quality"`
	DownloadTimeout    Duration `toml:"download_timeout"`
}

// LayoutConfig positions the photo and the text block in template pixels.
type LayoutConfig struct {
	PhotoX      int    `toml:"photo_x"`
	PhotoY      int    `toml:"photo_y"`
	PhotoW      int    `toml:"photo_w"`
	PhotoH      int    `toml:"photo_h"`
	LineSpacing int    `toml:"line_spacing"`
	TextMargin  int    `toml:"text_margin"`
	TextColor   string `toml:"text_color"`
}

// FontsConfig holds one font file and size per text line. An empty path
// selects the bundled Go font.
type FontsConfig struct {
	NamePath    string  `toml:"name_path"`
	NameSize    float64 `toml:"name_size"`
	AddressPath string  `toml:"address_path"`
	AddressSize float64 `toml:"address_size"`
	RolePath    string  `toml:"role_path"`
	RoleSize    float64 `toml:"role_size"`
}

type UploadConfig struct {
	URL     string   `toml:"url"`
	APIKey  string   `toml:"-"`
	Timeout Duration `toml:"timeout"`
}

type GatewayConfig struct {
	URL         string   `toml:"url"`
	APIKey      string   `toml:"-"`
	Sender      string   `toml:"sender"`
	CountryCode string   `toml:"country_code"`
	GroupSuffix string   `toml:"group_suffix"`
	Groups      []string `toml:"groups"`
	Timeout     Duration `toml:"timeout"`
}

// PacingConfig selects the policy applied between group dispatches.
// Mode "delay" sleeps Delay; mode "rate" allows Rate sends per second with
// the given Burst.
type PacingConfig struct {
	Mode  string   `toml:"mode"`
	Delay Duration `toml:"delay"`
	Rate  float64  `toml:"rate"`
	Burst int      `toml:"burst"`
}

type ScraperConfig struct {
	URL       string   `toml:"url"`
	Output    string   `toml:"output"`
	UserAgent string   `toml:"user_agent"`
	Delay     Duration `toml:"delay"`
}

// ServerConfig is the HTTP trigger. Token guards every route that sends or
// fetches.
type ServerConfig struct {
	Host  string `toml:"host"`
	Port  string `toml:"port"`
	Token string `toml:"-"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// OccasionConfig describes one kind of greeting. Captions are text/template
// strings executed with the member's roster row.
type OccasionConfig struct {
	Roster       string `toml:"roster"`
	Suffix       string `toml:"suffix"`
	DMCaption    string `toml:"dm_caption"`
	GroupCaption string `toml:"group_caption"`
}

// Duration decodes TOML strings such as "500ms" or "45s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		Roster: RosterConfig{Path: "our_team_details.csv"},
		Template: TemplateConfig{
			Path:               "template.png",
			FallbackImage:      "noImage.jpg",
			PlaceholderMarkers: []string{"rotary-logo.png"},
			OutputDir:          "output",
			JPEGQuality:        90,
			DownloadTimeout:    Duration{30 * time.Second},
		},
		Layout: LayoutConfig{
			PhotoX:      652,
			PhotoY:      362,
			PhotoW:      364,
			PhotoH:      369,
			LineSpacing: 8,
			TextMargin:  15,
			TextColor:   "#000000",
		},
		Fonts: FontsConfig{
			NameSize:    36,
			AddressSize: 30,
			RoleSize:    28,
		},
		Upload: UploadConfig{
			URL:     "https://picnie.com/api/v1/upload-asset",
			Timeout: Duration{45 * time.Second},
		},
		Gateway: GatewayConfig{
			URL:         "https://app.d4digitalsolutions.com/send-media",
			CountryCode: "91",
			GroupSuffix: "@g.us",
			Timeout:     Duration{45 * time.Second},
		},
		Pacing: PacingConfig{
			Mode:  "delay",
			Delay: Duration{500 * time.Millisecond},
			Rate:  2,
			Burst: 1,
		},
		Scraper: ScraperConfig{
			URL:       "https://rotasmart.club/greetings/w/",
			Output:    "our_team_details.csv",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Delay:     Duration{time.Second},
		},
		Server: ServerConfig{Host: "127.0.0.1", Port: "8080"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Occasions: map[string]OccasionConfig{
			"birthday": {
				Suffix: "birthday",
				DMCaption: "Dear *Rtn.{{.Name}}*,\n\n" +
					"Wishing you a very Happy Birthday and a wonderful year ahead!",
				GroupCaption: "Birthday greetings to Rtn.{{.Name}}, {{.Address}}.",
			},
			"anniversary": {
				Suffix: "anniversary",
				DMCaption: "Dear *Rtn.{{.Name}}*,\n\n" +
					"Wishing you a very Happy Anniversary and a wonderful year ahead! " +
					"May your special day be filled with joy and cherished moments.",
				GroupCaption: "Happy wedding anniversary to Rtn.{{.Name}}, {{.Address}}.",
			},
		},
	}
}

// Load reads .env, then the TOML file at path (optional when path is the
// default), then applies environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment variables")
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		logrus.WithField("path", path).Debug("No config file found, using defaults")
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Upload.APIKey = getEnv("UPLOAD_API_KEY", c.Upload.APIKey)
	c.Gateway.APIKey = getEnv("GATEWAY_API_KEY", c.Gateway.APIKey)
	c.Gateway.Sender = getEnv("GATEWAY_SENDER", c.Gateway.Sender)
	if ids := getEnv("GATEWAY_GROUP_IDS", ""); ids != "" {
		c.Gateway.Groups = splitList(ids)
	}
	c.Roster.Path = getEnv("ROSTER_PATH", c.Roster.Path)
	c.Template.OutputDir = getEnv("OUTPUT_DIR", c.Template.OutputDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Token = getEnv("SERVER_TOKEN", c.Server.Token)
}

// Validate checks everything needed to compose images.
func (c *Config) Validate() error {
	var errs []error
	if c.Template.Path == "" {
		errs = append(errs, errors.New("template.path is required"))
	}
	if c.Template.FallbackImage == "" {
		errs = append(errs, errors.New("template.fallback_image is required"))
	}
	if c.Template.OutputDir == "" {
		errs = append(errs, errors.New("template.output_dir is required"))
	}
	if q := c.Template.JPEGQuality; q < 1 || q > 100 {
		errs = append(errs, fmt.Errorf("template.jpeg_quality %d out of range 1-100", q))
	}
	if c.Layout.PhotoW <= 0 || c.Layout.PhotoH <= 0 {
		errs = append(errs, errors.New("layout.photo_w and layout.photo_h must be positive"))
	}
	if c.Layout.PhotoX < 0 || c.Layout.PhotoY < 0 {
		errs = append(errs, errors.New("layout.photo_x and layout.photo_y must not be negative"))
	}
	if c.Fonts.NameSize <= 0 || c.Fonts.AddressSize <= 0 || c.Fonts.RoleSize <= 0 {
		errs = append(errs, errors.New("font sizes must be positive"))
	}
	switch c.Pacing.Mode {
	case "delay", "":
	case "rate":
		if c.Pacing.Rate <= 0 {
			errs = append(errs, errors.New("pacing.rate must be positive in rate mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown pacing.mode %q", c.Pacing.Mode))
	}
	return errors.Join(errs...)
}

// ValidatePublishing checks the upload and gateway credentials. Dry runs
// skip it.
func (c *Config) ValidatePublishing() error {
	var errs []error
	if c.Upload.URL == "" {
		errs = append(errs, errors.New("upload.url is required"))
	}
	if c.Upload.APIKey == "" {
		errs = append(errs, errors.New("UPLOAD_API_KEY is not set"))
	}
	if c.Gateway.URL == "" {
		errs = append(errs, errors.New("gateway.url is required"))
	}
	if c.Gateway.APIKey == "" {
		errs = append(errs, errors.New("GATEWAY_API_KEY is not set"))
	}
	if c.Gateway.Sender == "" {
		errs = append(errs, errors.New("gateway sender is not set"))
	}
	return errors.Join(errs...)
}

// ValidateServer checks what the serve command needs on top of Validate.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.Token == "" {
		errs = append(errs, errors.New("SERVER_TOKEN is not set"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the serve command.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Occasion returns the named occasion with the roster path defaulted.
func (c *Config) Occasion(name string) (OccasionConfig, error) {
	occ, ok := c.Occasions[name]
	if !ok {
		return OccasionConfig{}, fmt.Errorf("unknown occasion %q", name)
	}
	if occ.Roster == "" {
		occ.Roster = c.Roster.Path
	}
	if occ.Suffix == "" {
		occ.Suffix = name
	}
	return occ, nil
}

// SetupLogging applies the log section to the global logrus logger.
func (c *Config) SetupLogging() {
	if strings.EqualFold(c.Log.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		logrus.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
