package tools

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ztkent/lux-meter/tsl2591"
)

// Config is read from the environment once at startup.
type Config struct {
	I2CDevice       string
	Gain            tsl2591.Gain
	IntegrationTime tsl2591.IntegrationTime
	RecordInterval  time.Duration
	MaxJobDuration  time.Duration
	DBPath          string
	LogLevel        string
	LogFile         string
	SSL             bool
	Port            string
	Location        *time.Location
}

// LoadConfig reads the config through getenv, usually os.Getenv.
func LoadConfig(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		I2CDevice: get("I2C_DEVICE", "/dev/i2c-1"),
		DBPath:    get("DB_PATH", "luxmeter.db"),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFile:   get("LOG_FILE", "luxmeter.log"),
		SSL:       strings.EqualFold(get("SSL", "false"), "true"),
	}
	if cfg.LogFile == "-" {
		cfg.LogFile = ""
	}

	var err error
	if cfg.Gain, err = tsl2591.ParseGain(get("TSL2591_GAIN", "low")); err != nil {
		return Config{}, err
	}
	if cfg.IntegrationTime, err = tsl2591.ParseIntegrationTime(get("TSL2591_INTEGRATION_TIME", "100ms")); err != nil {
		return Config{}, err
	}
	if cfg.RecordInterval, err = parsePositiveDuration("RECORD_INTERVAL", get("RECORD_INTERVAL", "30s")); err != nil {
		return Config{}, err
	}
	if cfg.MaxJobDuration, err = parsePositiveDuration("MAX_JOB_DURATION", get("MAX_JOB_DURATION", "8h")); err != nil {
		return Config{}, err
	}
	if cfg.Location, err = time.LoadLocation(get("TZ_NAME", "UTC")); err != nil {
		return Config{}, fmt.Errorf("TZ_NAME: %w", err)
	}

	defaultPort := "80"
	if cfg.SSL {
		defaultPort = "443"
	}
	cfg.Port = get("PORT", defaultPort)
	return cfg, nil
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, value)
	}
	return d, nil
}
