package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate runs at startup so everything downstream receives
// already-validated values.
func Validate(cfg Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Discord.Token) == "" {
		errs = append(errs, "discord.token is required (or set DISCORD_TOKEN)")
	}
	if cfg.Refresh.DefaultLimit < 1 || cfg.Refresh.DefaultLimit > 50 {
		errs = append(errs, "refresh.default_limit must be 1..50")
	}
	if tz := cfg.Refresh.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Sprintf("refresh.timezone %q is not a known timezone", tz))
		}
	}
	if expr := strings.TrimSpace(cfg.Refresh.GlobalCron); expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			errs = append(errs, fmt.Sprintf("refresh.global_cron %q: %v", expr, err))
		}
		if strings.TrimSpace(cfg.Discord.DefaultChannelID) == "" {
			errs = append(errs, "refresh.global_cron requires discord.default_channel_id")
		}
	}
	if !cfg.Sources.FreshersNow.Enabled && !cfg.Sources.TNPOfficer.Enabled {
		errs = append(errs, "no sources enabled: enable freshersnow or tnpofficer")
	}
	if cfg.HTTP.TimeoutSeconds <= 0 {
		errs = append(errs, "http.timeout_seconds must be > 0")
	}
	if cfg.HTTP.RatePerSec <= 0 {
		errs = append(errs, "http.rate_per_sec must be > 0")
	}
	if cfg.HTTP.Burst < 1 {
		errs = append(errs, "http.burst must be >= 1")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
