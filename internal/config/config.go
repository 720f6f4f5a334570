package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/strike-client/pkg/logger"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Configuration This struct holds config envs and values used by the
// strike-client binaries. Only this struct must be used to hold any
// configuration values, no direct access to env, ini or any other
// config source should be made
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"strike_client"`
	AppDebug            bool   `env:"APP_DEBUG" default:"1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	StrikeAPIKey  string `env:"STRIKE_API_KEY" validation:"mustExists"`
	StrikeAPIHost string `env:"STRIKE_API_HOST" default:"api.strike.acinq.co"`
	StrikeAPIBase string `env:"STRIKE_API_BASE" default:"/api/v1/"`

	HTTPClientTimeout         time.Duration `env:"HTTP_CLIENT_TIMEOUT"`
	HTTPClientMaxConns        int           `env:"HTTP_CLIENT_MAX_CONNS"`
	HTTPClientReadBufferSize  int           `env:"HTTP_CLIENT_READ_BUFFER_SIZE"`
	HTTPClientWriteBufferSize int           `env:"HTTP_CLIENT_WRITE_BUFFER_SIZE"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	WatchPollInterval time.Duration `env:"WATCH_POLL_INTERVAL" default:"5s"`
	WatchWorkers      int           `env:"WATCH_WORKERS" default:"4"`

	LogLevel []string `env:"LOG_LEVEL"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
