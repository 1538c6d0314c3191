// Package config loads the two configuration surfaces OmniFS needs: the
// line-based key=value container Config (matching the original
// config_parser.cpp's format exactly for file compatibility), and a YAML
// ServerConfig for ambient operational concerns (log level, metrics/health
// addresses, circuit breaker tuning).
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/omnifs/omnifs/internal/container"
)

// LoadContainerConfig parses a line-based key=value file into a
// container.Config. '#' starts a comment; double-quoted values have their
// quotes stripped. Unrecognized keys are ignored, matching the source.
func LoadContainerConfig(path string) (container.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return container.Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := container.Config{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}

		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if key == "" || value == "" {
			continue
		}
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}

		if err := setField(&cfg, key, value); err != nil {
			return container.Config{}, fmt.Errorf("parsing key %q with value %q: %w", key, value, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return container.Config{}, fmt.Errorf("read config: %w", err)
	}

	return cfg, nil
}

func setField(cfg *container.Config, key, value string) error {
	switch key {
	case "total_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.TotalSize = v
	case "header_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.HeaderSize = v
	case "block_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.BlockSize = v
	case "max_files":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.MaxFiles = v
	case "max_filename_length":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.MaxFilenameLength = v
	case "max_users":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.MaxUsers = v
	case "admin_username":
		cfg.AdminUsername = value
	case "admin_password":
		cfg.AdminPassword = value
	case "require_auth":
		cfg.RequireAuth = value == "true"
	case "port":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Port = v
	case "max_connections":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.MaxConnections = v
	case "queue_timeout":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.QueueTimeout = v
	}
	return nil
}

// Validate checks the invariants engine construction depends on: a
// container.Config with a zero block size or a total_size not a multiple of
// it cannot be formatted, since every region offset is derived from these.
func Validate(cfg container.Config) error {
	if cfg.BlockSize == 0 {
		return fmt.Errorf("block_size must be nonzero")
	}
	if cfg.TotalSize == 0 || cfg.TotalSize%cfg.BlockSize != 0 {
		return fmt.Errorf("total_size must be a positive multiple of block_size")
	}
	if cfg.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive")
	}
	if cfg.MaxUsers <= 0 {
		return fmt.Errorf("max_users must be positive")
	}
	if cfg.AdminUsername == "" {
		return fmt.Errorf("admin_username must be set")
	}
	return nil
}
