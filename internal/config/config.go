package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	FakeBackendConfig
}

type EnvConfig interface {
	GetEnv() string
	GetAppName() string
	GetLogLevel() string
	GetDataFolder() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRefreshPath() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
}

type SessionConfig interface {
	GetRefreshTokenMaxAge() time.Duration
	GetStoreBackend() string
	GetStorePath() string
	GetStorePassphrase() string
	GetRedisURL() string
	GetSQLitePath() string
}

type FakeBackendConfig interface {
	GetFakeBackendPort() string
	GetFakeBackendSecret() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	FakeBackend
}

// New returns a configuration backed by the process environment only.
func New() Config {
	return newConfig(&FileValues{})
}

func newConfig(file *FileValues) Config {
	return mainConfig{
		EnvVars:     EnvVars{file: file},
		API:         API{file: file},
		Session:     Session{file: file},
		FakeBackend: FakeBackend{file: file},
	}
}
