package config

import (
	"strings"
	"time"

	"github.com/jrsteele09/mento-client/internal/utils"
)

const (
	refreshMaxAgeVar   = "REFRESH_TOKEN_MAX_AGE"
	storeBackendVar    = "STORE_BACKEND"
	storePathVar       = "STORE_PATH"
	storePassphraseVar = "STORE_PASSPHRASE"
	redisURLVar        = "REDIS_URL"
	sqlitePathVar      = "SQLITE_PATH"

	StoreBackendFile   = "file"
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendSQLite = "sqlite"
)

type Session struct {
	file *FileValues
}

var _ SessionConfig = Session{}

// GetRefreshTokenMaxAge is the locally enforced refresh token lifetime, measured from
// the stored issuance timestamp.
func (s Session) GetRefreshTokenMaxAge() time.Duration {
	return GetDuration(refreshMaxAgeVar, s.file.Session.RefreshTokenMaxAge, 30*24*time.Hour)
}

func (s Session) GetStoreBackend() string {
	return strings.ToLower(GetEnv(storeBackendVar, utils.FirstNonEmpty(s.file.Session.Store.Backend, StoreBackendFile)))
}

func (s Session) GetStorePath() string {
	return GetEnv(storePathVar, utils.FirstNonEmpty(s.file.Session.Store.Path, dataPath(EnvVars{file: s.file}, "credentials.json")))
}

func (s Session) GetStorePassphrase() string {
	return GetEnv(storePassphraseVar, s.file.Session.Store.Passphrase)
}

func (s Session) GetRedisURL() string {
	return GetEnv(redisURLVar, utils.FirstNonEmpty(s.file.Session.Store.RedisURL, "redis://localhost:6379/0"))
}

func (s Session) GetSQLitePath() string {
	return GetEnv(sqlitePathVar, utils.FirstNonEmpty(s.file.Session.Store.SQLitePath, dataPath(EnvVars{file: s.file}, "credentials.db")))
}
