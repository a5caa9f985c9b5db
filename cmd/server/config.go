package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	Port   string       `yaml:"port"`
	Typing typingConfig `yaml:"typing"`
}

// typingConfig tunes the simulated-typing schedule. Delays are in
// milliseconds; the initial delay is the thinking pause before the first
// word, the word delay runs between consecutive words.
type typingConfig struct {
	InitialDelayMS int `yaml:"initialDelayMs"`
	WordDelayMS    int `yaml:"wordDelayMs"`
}

func defaultConfig() config {
	return config{
		Port: "8080",
		Typing: typingConfig{
			InitialDelayMS: 100,
			WordDelayMS:    50,
		},
	}
}

// loadConfig reads the yaml config at path, falling back to defaults when
// the file does not exist. Missing fields keep their default values.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func (t typingConfig) initialDelay() time.Duration {
	return time.Duration(t.InitialDelayMS) * time.Millisecond
}

func (t typingConfig) wordDelay() time.Duration {
	return time.Duration(t.WordDelayMS) * time.Millisecond
}
