package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileValues mirrors the optional YAML configuration file. Environment variables
// always take precedence over values read from the file.
type FileValues struct {
	Env        string `yaml:"env"`
	AppName    string `yaml:"app_name"`
	LogLevel   string `yaml:"log_level"`
	DataFolder string `yaml:"data_folder"`
	API        struct {
		BaseURL        string `yaml:"base_url"`
		RefreshPath    string `yaml:"refresh_path"`
		RequestTimeout string `yaml:"request_timeout"`
		RefreshTimeout string `yaml:"refresh_timeout"`
	} `yaml:"api"`
	Session struct {
		RefreshTokenMaxAge string `yaml:"refresh_token_max_age"`
		Store              struct {
			Backend    string `yaml:"backend"`
			Path       string `yaml:"path"`
			Passphrase string `yaml:"passphrase"`
			RedisURL   string `yaml:"redis_url"`
			SQLitePath string `yaml:"sqlite_path"`
		} `yaml:"store"`
	} `yaml:"session"`
	FakeBackend struct {
		Port   string `yaml:"port"`
		Secret string `yaml:"secret"`
	} `yaml:"fake_backend"`
}

// Load reads an optional .env file into the process environment and an optional YAML
// file (named by MENTO_CONFIG) and returns the combined configuration.
// A missing .env file is not an error; a missing YAML file named explicitly is.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "config.Load %s", envFile)
		}
	}

	file := &FileValues{}
	if path := GetEnv(configFileVar, ""); path != "" {
		values, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = values
	}
	return newConfig(file), nil
}

// LoadFile parses a YAML configuration file.
func LoadFile(path string) (*FileValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config.LoadFile read")
	}
	values := &FileValues{}
	if err := yaml.Unmarshal(data, values); err != nil {
		return nil, errors.Wrap(err, "config.LoadFile unmarshal")
	}
	return values, nil
}

// FromFile returns a configuration layered over the given file values.
func FromFile(values *FileValues) Config {
	if values == nil {
		values = &FileValues{}
	}
	return newConfig(values)
}
