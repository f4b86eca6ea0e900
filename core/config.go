package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string

		API struct {
			BaseURL string
			Timeout time.Duration
		}

		Attempt struct {
			TickInterval time.Duration
			// StrictExpiry rejects attempts the backend started without an expiry
			// instead of estimating one from the test duration.
			StrictExpiry bool
		}

		Credentials struct {
			Path string
		}

		Server struct {
			Host               string
			Address            string
			SecretKey          string
			ShutdownTimeout    time.Duration
			JWTExpirationDelta time.Duration
		}

		Sandbox struct {
			SubmitGrace       time.Duration
			LegacyResultRoute bool
			Seed              bool
		}

		Database struct {
			URL string
		}
	}
)

// NewConfig reads the configuration from the environment.
// A `config/.env.<env>` file is loaded first when it exists; real env vars win.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	loadDotEnv(env)

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix("courseapp")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// defaults
	v.SetDefault("appName", "CourseApp")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("rollbar.token", "")
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("attempt.tick_interval", 500*time.Millisecond)
	v.SetDefault("attempt.strict_expiry", false)
	v.SetDefault("credentials.path", defaultCredentialsPath())
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.secret_key", "h9$x&c4+w1m)oq=2kz!t7e^n#3ld(8r_yu5v*bs")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("sandbox.submit_grace", 30*time.Second)
	v.SetDefault("sandbox.legacy_result_route", false)
	v.SetDefault("sandbox.seed", true)
	v.SetDefault("database.url", "")

	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     env == "TEST",
		RollbarToken: v.GetString("rollbar.token"),
	}
	conf.API.BaseURL = strings.TrimRight(v.GetString("api.base_url"), "/")
	conf.API.Timeout = v.GetDuration("api.timeout")
	conf.Attempt.TickInterval = v.GetDuration("attempt.tick_interval")
	conf.Attempt.StrictExpiry = v.GetBool("attempt.strict_expiry")
	conf.Credentials.Path = v.GetString("credentials.path")
	conf.Server.Host = v.GetString("server.host")
	conf.Server.Address = v.GetString("server.address")
	conf.Server.SecretKey = v.GetString("server.secret_key")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("server.jwt_expiration_delta")
	conf.Sandbox.SubmitGrace = v.GetDuration("sandbox.submit_grace")
	conf.Sandbox.LegacyResultRoute = v.GetBool("sandbox.legacy_result_route")
	conf.Sandbox.Seed = v.GetBool("sandbox.seed")
	conf.Database.URL = v.GetString("database.url")
	return conf
}

// load .env.<env> if it exists (ignore if it does not)
func loadDotEnv(env string) {
	root, err := Getwd()
	if err != nil {
		return
	}
	dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".courseapp", "credentials.json")
	}
	return filepath.Join(home, ".courseapp", "credentials.json")
}
