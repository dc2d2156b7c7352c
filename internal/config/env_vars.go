package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/mento-client/internal/utils"
	"github.com/rs/zerolog/log"
)

const (
	envVar        = "ENV"
	appNameVar    = "APP_NAME"
	logLevelVar   = "LOG_LEVEL"
	folderEnvVar  = "FOLDER"
	configFileVar = "MENTO_CONFIG"
)

type EnvVars struct {
	file *FileValues
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, utils.FirstNonEmpty(e.file.Env, "DEV")))
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, utils.FirstNonEmpty(e.file.AppName, "Mento Client"))
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelVar, utils.FirstNonEmpty(e.file.LogLevel, "info")))
}

func (e EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, utils.FirstNonEmpty(e.file.DataFolder, "./data"))
}

func GetEnv(envVar, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration reads a Go duration string from the environment, falling back to the
// file value and then to defaultValue. Unparseable values are ignored with a warning.
func GetDuration(envVar, fileValue string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, fileValue)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("key", envVar).Str("value", raw).Msg("Ignoring invalid duration")
		return defaultValue
	}
	return d
}

func dataPath(e EnvVars, name string) string {
	return filepath.Join(e.GetDataFolder(), name)
}
