package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"` // empty means the source's default page
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
		Listen  string `yaml:"listen"`
	} `yaml:"app"`

	Discord struct {
		Token            string `yaml:"token"`
		AppID            string `yaml:"app_id"`
		GuildID          string `yaml:"guild_id"`
		DefaultChannelID string `yaml:"default_channel_id"`
	} `yaml:"discord"`

	Refresh struct {
		Timezone     string `yaml:"timezone"`
		DefaultLimit int    `yaml:"default_limit"`
		GlobalCron   string `yaml:"global_cron"` // optional, e.g. "0 9 * * *"
	} `yaml:"refresh"`

	Sources struct {
		FreshersNow SourceConfig `yaml:"freshersnow"`
		TNPOfficer  SourceConfig `yaml:"tnpofficer"`
	} `yaml:"sources"`

	HTTP struct {
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSec     float64 `yaml:"rate_per_sec"`
		Burst          int     `yaml:"burst"`
	} `yaml:"http"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	// the token never has to live in the config file
	if tok := os.Getenv("DISCORD_TOKEN"); tok != "" {
		cfg.Discord.Token = tok
	}
	return cfg, nil
}
