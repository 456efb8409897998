package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is shared by the relay server and the caller endpoint.
type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	IdentifyTimeout time.Duration `mapstructure:"identify_timeout"`
	SendQueue       int           `mapstructure:"send_queue"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`

	Caller Caller `mapstructure:"caller"`
}

// RateLimit bounds call-requests per user in a sliding window.
type RateLimit struct {
	Calls  int           `mapstructure:"calls"`
	Window time.Duration `mapstructure:"window"`
}

type Caller struct {
	SignalURL string `mapstructure:"signal_url"`
	UserID    string `mapstructure:"user_id"`
	UserName  string `mapstructure:"user_name"`
	Admin     bool   `mapstructure:"admin"`

	SetupTimeout  time.Duration `mapstructure:"setup_timeout"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`

	ICE   ICE   `mapstructure:"ice"`
	Media Media `mapstructure:"media"`
}

type ICE struct {
	STUNServers         []string      `mapstructure:"stun_servers"`
	DisconnectedTimeout time.Duration `mapstructure:"disconnected_timeout"`
	FailedTimeout       time.Duration `mapstructure:"failed_timeout"`
	KeepAliveInterval   time.Duration `mapstructure:"keepalive_interval"`
}

type Media struct {
	MaxWidth     int `mapstructure:"max_width"`
	MaxHeight    int `mapstructure:"max_height"`
	VideoBitRate int `mapstructure:"video_bitrate"`
}

// EnvPrefix prefixes environment overrides, e.g. CARECALL_CALLER_USER_ID.
const EnvPrefix = "CARECALL"

func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads the config file picked by CONFIG_ENV into v. Flags bound to
// v beforehand take precedence over the file.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "carecall-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("identify_timeout", "10s")
	v.SetDefault("send_queue", 32)
	v.SetDefault("rate_limit.calls", 5)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("caller.signal_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("caller.user_id", "")
	v.SetDefault("caller.user_name", "")
	v.SetDefault("caller.admin", false)
	v.SetDefault("caller.setup_timeout", "30s")
	v.SetDefault("caller.settle_timeout", "1s")
	v.SetDefault("caller.grace_period", "10s")
	v.SetDefault("caller.ice.stun_servers", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
	})
	v.SetDefault("caller.ice.disconnected_timeout", "0s")
	v.SetDefault("caller.ice.failed_timeout", "0s")
	v.SetDefault("caller.ice.keepalive_interval", "0s")
	v.SetDefault("caller.media.max_width", 640)
	v.SetDefault("caller.media.max_height", 480)
	v.SetDefault("caller.media.video_bitrate", 1_500_000)
}
