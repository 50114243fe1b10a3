package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	mu          sync.RWMutex
	envFilePath string
)

// UseEnvFile makes New read path instead of ./.env. An empty path restores
// the default.
func UseEnvFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	envFilePath = strings.TrimSpace(path)
}

func New[T any](prefix string) (*T, error) {
	filepath := resolveEnvPath()
	if filepath != "" {
		if err := exportEnvironment(filepath); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func resolveEnvPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return envFilePath
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

// exportEnvironment copies the file's keys into the process environment.
// Variables already set in the environment win.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
