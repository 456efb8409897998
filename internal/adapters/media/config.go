package media

// Config tunes local capture.
type Config struct {
	MaxWidth     int `mapstructure:"max_width"`
	MaxHeight    int `mapstructure:"max_height"`
	VideoBitRate int `mapstructure:"video_bitrate"`
}

func DefaultConfig() Config {
	return Config{MaxWidth: 640, MaxHeight: 480, VideoBitRate: 1_500_000}
}
