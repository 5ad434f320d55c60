package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Storage
		Remote
		Token
		Tasks
		OrphanSweep
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Storage struct {
		DataDir string
		Debug   bool // gorm query logging
	}
	Remote struct {
		URL     string // empty means relative paths, which fail as unreachable
		Timeout time.Duration
	}
	Token struct {
		EncryptionKey string
		KeyFile       string // defaults to <data dir>/.token-key
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	OrphanSweep struct {
		Enabled  bool
		Schedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
)

// LoadEnvFiles loads variables from .env style files into the process
// environment. Variables already set win. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		err := godotenv.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		log.Printf("Loaded environment from %s", path)
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("db_debug", false)
	v.SetDefault("remote_url", "http://localhost:8000")
	v.SetDefault("remote_timeout", "30s")
	v.SetDefault("token_encryption_key", "")
	v.SetDefault("token_key_file", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("orphan_sweep_enabled", true)
	v.SetDefault("orphan_sweep_schedule", "30 3 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Storage: Storage{
			DataDir: v.GetString("DATA_DIR"),
			Debug:   v.GetBool("DB_DEBUG"),
		},
		Remote: Remote{
			URL:     v.GetString("REMOTE_URL"),
			Timeout: v.GetDuration("REMOTE_TIMEOUT"),
		},
		Token: Token{
			EncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
			KeyFile:       v.GetString("TOKEN_KEY_FILE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		OrphanSweep: OrphanSweep{
			Enabled:  v.GetBool("ORPHAN_SWEEP_ENABLED"),
			Schedule: v.GetString("ORPHAN_SWEEP_SCHEDULE"),
		},
	}
}
