// Package config resolves runtime options from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chasedut/chatfun/internal/env"
)

const (
	EnvAPIURL            = "CHATFUN_API_URL"
	EnvDataDir           = "CHATFUN_DATA_DIR"
	EnvChatInterval      = "CHATFUN_CHAT_INTERVAL"
	EnvDMInterval        = "CHATFUN_DM_INTERVAL"
	EnvSpyInterval       = "CHATFUN_SPY_INTERVAL"
	EnvMessageLimit      = "CHATFUN_MESSAGE_LIMIT"
	EnvRequestsPerSecond = "CHATFUN_REQUESTS_PER_SECOND"
	EnvDebug             = "CHATFUN_DEBUG"
)

const (
	DefaultAPIURL            = "http://localhost:5000/api"
	DefaultDataDirectory     = ".chatfun"
	DefaultChatInterval      = time.Second
	DefaultDMInterval        = 3 * time.Second
	DefaultSpyInterval       = 3 * time.Second
	DefaultMessageLimit      = 50
	DefaultRequestsPerSecond = 10
)

type Config struct {
	APIURL            string
	DataDirectory     string
	ChatInterval      time.Duration
	DMInterval        time.Duration
	SpyInterval       time.Duration
	MessageLimit      int
	RequestsPerSecond float64
	Debug             bool
}

func Defaults() Config {
	return Config{
		APIURL:            DefaultAPIURL,
		DataDirectory:     defaultDataDir(),
		ChatInterval:      DefaultChatInterval,
		DMInterval:        DefaultDMInterval,
		SpyInterval:       DefaultSpyInterval,
		MessageLimit:      DefaultMessageLimit,
		RequestsPerSecond: DefaultRequestsPerSecond,
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, DefaultDataDirectory)
	}
	return DefaultDataDirectory
}

// Load overlays environment values on the defaults. Intervals accept Go
// durations ("1500ms") or plain seconds ("3").
func Load(e env.Env) (Config, error) {
	cfg := Defaults()
	if v := e.Get(EnvAPIURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := e.Get(EnvDataDir); v != "" {
		cfg.DataDirectory = v
	}

	var err error
	if cfg.ChatInterval, err = duration(e, EnvChatInterval, cfg.ChatInterval); err != nil {
		return Config{}, err
	}
	if cfg.DMInterval, err = duration(e, EnvDMInterval, cfg.DMInterval); err != nil {
		return Config{}, err
	}
	if cfg.SpyInterval, err = duration(e, EnvSpyInterval, cfg.SpyInterval); err != nil {
		return Config{}, err
	}
	if v := e.Get(EnvMessageLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvMessageLimit, v)
		}
		cfg.MessageLimit = n
	}
	if v := e.Get(EnvRequestsPerSecond); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%s must be a non-negative number, got %q", EnvRequestsPerSecond, v)
		}
		cfg.RequestsPerSecond = n
	}
	if v := e.Get(EnvDebug); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}
	return cfg, nil
}

func duration(e env.Env, key string, fallback time.Duration) (time.Duration, error) {
	v := e.Get(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		v = strconv.FormatFloat(secs, 'f', -1, 64) + "s"
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, e.Get(key))
	}
	return d, nil
}

// LogFile is where the rotating log is written.
func (c Config) LogFile() string {
	return filepath.Join(c.DataDirectory, "logs", "chatfun.log")
}
