package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Load reads the configuration at path. A .env file next to it is loaded
// first and ${VAR} references are expanded before parsing.
func Load(path string) (*Config, error) {
	loadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, sberrors.ConfigNotFound(path)
	}
	if err != nil {
		return nil, sberrors.FileSystemError("read", path, err)
	}
	return Parse(path, data)
}

// LoadOrDefault loads path, or returns Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if sberrors.IsCategory(err, sberrors.CategoryConfig) {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return Default(), nil
		}
	}
	return cfg, err
}

// Parse decodes a configuration document. Keys absent from data keep their
// Default value; keys present but empty are filled by the default appliers.
func Parse(name string, data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, sberrors.ConfigInvalid(name, err)
	}
	if err := NewDefaultApplier().ApplyDefaults(cfg); err != nil {
		return nil, sberrors.ConfigInvalid(name, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return sberrors.New(sberrors.CategoryConfig, sberrors.SeverityFatal,
			fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path))
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return sberrors.InternalError("failed to marshal example config", err)
	}
	header := []byte("# sitebuilder configuration. ${VAR} references are expanded from the environment and .env.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return sberrors.FileSystemError("write", path, err)
	}
	return nil
}
