package internal

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"github.com/snagd/snagd/internal/api"
	"github.com/snagd/snagd/internal/database"
	"github.com/snagd/snagd/internal/ffmpeg"
	"github.com/snagd/snagd/internal/job"
	"github.com/snagd/snagd/internal/storage"
)

// SnagdConfig is the struct used to contain the various user config
// supplied by file or environment.
type SnagdConfig struct {
	Rest    api.RestConfig `yaml:"api"`
	Jobs    job.Config     `yaml:"jobs"`
	Ffmpeg  ffmpeg.Config  `yaml:"formatter"`
	Storage storage.Config `yaml:"storage"`

	YtdlpPath     string `yaml:"ytdlp_binary" env:"YTDLP_BINARY" env-default:"yt-dlp"`
	DownloadDir   string `yaml:"download_dir" env:"DOWNLOAD_DIR" env-default:"~/.cache/snagd/downloads"`
	OverridesPath string `yaml:"overrides_path" env:"OVERRIDES_PATH"`

	EnableDatabase bool                    `yaml:"enable_database" env:"ENABLE_DATABASE" env-default:"false"`
	Database       database.DatabaseConfig `yaml:"database"`

	RedisAddr       string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword   string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes" env:"CACHE_TTL_MINUTES" env-default:"360"`
}

// LoadFromFile loads a YAML configuration file into a SnagdConfig,
// falling back to environment variables and defaults for absent keys.
// Paths are tilde-expanded after loading.
func (config *SnagdConfig) LoadFromFile(configPath string) error {
	var err error
	if configPath != "" {
		err = cleanenv.ReadConfig(configPath, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration - %v", err.Error())
	}

	if config.DownloadDir, err = homedir.Expand(config.DownloadDir); err != nil {
		return fmt.Errorf("failed to expand download_dir - %v", err.Error())
	}
	if config.OverridesPath != "" {
		if config.OverridesPath, err = homedir.Expand(config.OverridesPath); err != nil {
			return fmt.Errorf("failed to expand overrides_path - %v", err.Error())
		}
	}

	return nil
}
