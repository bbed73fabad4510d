// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Admin     AdminConfig             `yaml:"admin"`
	Playback  PlaybackConfig          `yaml:"playback"`
	Discovery DiscoveryConfig         `yaml:"discovery"`
	Spotify   SpotifyConfig           `yaml:"spotify"`
	Media     MediaConfig             `yaml:"media"`
	Artwork   ArtworkConfig           `yaml:"artwork"`
	MQTT      MQTTConfig              `yaml:"mqtt"`
	Filters   map[string]FilterConfig `yaml:"filters"`
	Messages  MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":5000"`
	// PublicURL is the base URL devices use to fetch media from this server.
	PublicURL string `yaml:"public_url" validate:"omitempty,url"`
	// StaticDir is served under /static when set.
	StaticDir string      `yaml:"static_dir"`
	Hooks     HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
// An empty token leaves control procedures open.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" default:"2s" validate:"gt=0"`
	StopTimeout    time.Duration `yaml:"stop_timeout" default:"8s" validate:"gt=0"`
	GracePeriod    time.Duration `yaml:"grace_period" default:"4s" validate:"gte=0"`
	CommandTimeout time.Duration `yaml:"command_timeout" default:"10s" validate:"gt=0"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" default:"1500ms" validate:"gt=0"`
}

// DiscoveryConfig represents device discovery configuration.
type DiscoveryConfig struct {
	ScanInterval time.Duration  `yaml:"scan_interval" default:"30s" validate:"gt=0"`
	Sources      []SourceConfig `yaml:"sources" validate:"dive"`
}

// SourceConfig represents a single discovery source.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=cast speaker streaming"`
	Settings map[string]any `yaml:"settings"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	RedirectURL    string `yaml:"redirect_url" default:"http://localhost:5000/callback" validate:"omitempty,url"`
	RefreshToken   string `yaml:"refresh_token"`
	TokenCachePath string `yaml:"token_cache_path" default:".spotify_token_cache"`
	// PollStatus enables player-state polling for streaming sessions.
	PollStatus bool `yaml:"poll_status"`
}

// Enabled reports whether Spotify credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// MediaConfig represents local media library configuration.
type MediaConfig struct {
	Root       string   `yaml:"root" default:"/app/media"`
	Extensions []string `yaml:"extensions" default:"[\".mp3\",\".flac\",\".wav\",\".m4a\",\".aac\",\".ogg\"]"`
}

// ArtworkConfig represents cover art lookup configuration.
type ArtworkConfig struct {
	CacheSize    int    `yaml:"cache_size" default:"256" validate:"gt=0"`
	LastFMAPIKey string `yaml:"lastfm_api_key"`
	Placeholder  string `yaml:"placeholder" default:"/static/default_album.png"`
}

// MQTTConfig represents the MQTT event publisher configuration.
type MQTTConfig struct {
	Enabled     bool           `yaml:"enabled"`
	Broker      MQTTBrokerConf `yaml:"broker"`
	Auth        MQTTAuthConf   `yaml:"auth"`
	QoS         byte           `yaml:"qos" default:"1" validate:"lte=2"`
	TopicPrefix string         `yaml:"topic_prefix" default:"castbox"`
}

// MQTTBrokerConf holds the broker endpoint.
type MQTTBrokerConf struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"1883" validate:"gt=0,lte=65535"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id" default:"castbox"`
}

// MQTTAuthConf holds broker credentials.
type MQTTAuthConf struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success        string `yaml:"success" default:"queued"`
	DefaultError   string `yaml:"default_error" default:"request rejected"`
	InvalidItem    string `yaml:"invalid_item" default:"item must have exactly one of track ref or media url"`
	DeviceNotFound string `yaml:"device_not_found" default:"device not found"`
	QueueFull      string `yaml:"queue_full" default:"queue is full"`
	DuplicateItem  string `yaml:"duplicate_item" default:"item is already queued"`
	NotAccepting   string `yaml:"not_accepting" default:"server is not accepting requests"`
	InvalidPath    string `yaml:"invalid_path" default:"path is outside the media library"`
	PathNotFound   string `yaml:"path_not_found" default:"folder not found"`
	EmptyFolder    string `yaml:"empty_folder" default:"folder has no audio files"`
	NoPublicURL    string `yaml:"no_public_url" default:"server public url is not configured"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Spotify.RedirectURL = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("SPOTIFY_CACHE_PATH"); v != "" {
		c.Spotify.TokenCachePath = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.Artwork.LastFMAPIKey = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("MEDIA_ROOT"); v != "" {
		c.Media.Root = v
	}
	if v := os.Getenv("HOST_IP"); v != "" && c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://" + v + ":" + c.port()
	}

	secondsEnv := []struct {
		key string
		dst *time.Duration
	}{
		{"PLAYBACK_POLL_SECONDS", &c.Playback.PollInterval},
		{"PLAYBACK_STOP_TIMEOUT_SECONDS", &c.Playback.StopTimeout},
		{"PLAYBACK_GRACE_SECONDS", &c.Playback.GracePeriod},
	}
	for _, e := range secondsEnv {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", e.key)
		}
		*e.dst = time.Duration(secs * float64(time.Second))
	}
	return nil
}

// port returns the port part of the server address, defaulting to 5000.
func (c *Config) port() string {
	addr := c.Server.Addr
	if i := strings.LastIndex(addr, ":"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "5000"
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "invalid_item":
		return c.Messages.InvalidItem
	case "device_not_found":
		return c.Messages.DeviceNotFound
	case "queue_full":
		return c.Messages.QueueFull
	case "duplicate_item":
		return c.Messages.DuplicateItem
	case "not_accepting":
		return c.Messages.NotAccepting
	case "invalid_path":
		return c.Messages.InvalidPath
	case "path_not_found":
		return c.Messages.PathNotFound
	case "empty_folder":
		return c.Messages.EmptyFolder
	case "no_public_url":
		return c.Messages.NoPublicURL
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	for _, src := range c.Discovery.Sources {
		if src.Type == "streaming" && !c.Spotify.Enabled() {
			return errors.New("streaming discovery source requires spotify client_id and client_secret")
		}
	}

	if c.Playback.GracePeriod >= c.Playback.StopTimeout {
		return errors.Newf("grace_period (%s) must be shorter than stop_timeout (%s)",
			c.Playback.GracePeriod, c.Playback.StopTimeout)
	}

	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
