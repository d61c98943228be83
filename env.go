package qrand

import (
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jonwraymond/qrand/credentials"
)

// Environment variables honored by FromEnv.
//
//	QRAND_API_KEY     IBM Cloud API key (IBMQ_API_KEY is an alias)
//	QRAND_CHANNEL     service channel (ibm_cloud | ibm_quantum_platform)
//	QRAND_INSTANCE    service instance CRN
//	QRAND_BACKEND     device name override
//	QRAND_MAX_WIDTH   sampling circuit width cap
//	QRAND_DEBIAS      enable Von Neumann debiasing (boolean)
//	QRAND_LOG_LEVEL   zerolog level; unset disables logging
//	QRAND_LOG_PRETTY  console-format log output (boolean)
//
// FromEnv builds a Client from them. A .env file in the working
// directory is loaded first when present. Explicit options are applied
// after the environment and win on conflict.
func FromEnv(opts ...Option) *Client {
	_ = godotenv.Load()

	log := envLogger()
	base := []Option{WithLogger(log)}

	if key := envFirst("QRAND_API_KEY", "IBMQ_API_KEY"); key != "" {
		base = append(base, WithCredentials(credentials.NewAPIKeyProvider(credentials.IAMConfig{
			APIKey:   key,
			Channel:  os.Getenv("QRAND_CHANNEL"),
			Instance: os.Getenv("QRAND_INSTANCE"),
			Logger:   log,
		})))
	}
	if name := os.Getenv("QRAND_BACKEND"); name != "" {
		base = append(base, WithDevice(name))
	}
	if w := envInt("QRAND_MAX_WIDTH"); w > 0 {
		base = append(base, WithMaxCircuitWidth(w))
	}
	if envBool("QRAND_DEBIAS") {
		base = append(base, WithDebiasing())
	}

	return New(append(base, opts...)...)
}

// envLogger builds the stderr logger QRAND_LOG_LEVEL asks for, or a
// no-op logger when the variable is unset.
func envLogger() zerolog.Logger {
	level := os.Getenv("QRAND_LOG_LEVEL")
	if level == "" {
		return zerolog.Nop()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if envBool("QRAND_LOG_PRETTY") {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func envFirst(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
