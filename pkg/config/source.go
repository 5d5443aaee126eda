// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read into the configuration.
const EnvPrefix = "LIBSCOUT_"

// ConfigSource represents a configuration source that can load values into koanf.
// Sources are loaded in priority order (lowest first), with higher priority sources
// overriding lower priority values.
//
// Built-in sources and their priorities:
//   - DefaultSource (10): Hardcoded default values
//   - FileSource (20): Config file (e.g., ~/.config/libscout/config.yaml)
//   - DotenvSource (25): LIBSCOUT_* entries of a .env file
//   - EnvSource (30): Environment variables (LIBSCOUT_*)
//   - FlagSource (40): Command-line flags
type ConfigSource interface {
	// Name returns a human-readable name for this source (for logging/debugging)
	Name() string

	// Priority returns the load priority. Lower values are loaded first,
	// higher values override lower ones.
	Priority() int

	// Load loads configuration values into the provided koanf instance.
	Load(k *koanf.Koanf) error
}

// DefaultSource provides hardcoded default configuration values.
type DefaultSource struct{}

func (s *DefaultSource) Name() string  { return "defaults" }
func (s *DefaultSource) Priority() int { return 10 }

func (s *DefaultSource) Load(k *koanf.Koanf) error {
	if err := k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil); err != nil {
		return fmt.Errorf("error loading defaults: %w", err)
	}
	return nil
}

// FileSource loads configuration from a YAML file.
type FileSource struct {
	Path     string // Path to config file
	Required bool   // Fail when Path is missing instead of skipping
}

func (s *FileSource) Name() string  { return "file:" + s.Path }
func (s *FileSource) Priority() int { return 20 }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}

	if _, err := os.Stat(s.Path); err != nil {
		if os.IsNotExist(err) && !s.Required {
			return nil
		}
		return fmt.Errorf("error checking config file %s: %w", s.Path, err)
	}

	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return fmt.Errorf("error loading config file %s: %w", s.Path, err)
	}
	return nil
}

// DotenvSource reads LIBSCOUT_* entries from a .env file without touching
// the process environment. A missing file is skipped.
type DotenvSource struct {
	Path   string // Defaults to ".env"
	Prefix string // Defaults to EnvPrefix
}

func (s *DotenvSource) Name() string  { return "dotenv:" + s.path() }
func (s *DotenvSource) Priority() int { return 25 }

func (s *DotenvSource) path() string {
	if s.Path == "" {
		return ".env"
	}
	return s.Path
}

func (s *DotenvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}

	vars, err := godotenv.Read(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", s.path(), err)
	}

	values := make(map[string]interface{})
	for name, value := range vars {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		values[EnvKey(prefix, name)] = value
	}
	if len(values) == 0 {
		return nil
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return fmt.Errorf("error loading %s: %w", s.path(), err)
	}
	return nil
}

// EnvSource loads configuration from environment variables.
// A double underscore separates sections so keys may keep single ones:
//
//	LIBSCOUT_LOG__LEVEL              -> log.level
//	LIBSCOUT_PIPELINE__LIMIT_REPOS   -> pipeline.limit_repos
type EnvSource struct {
	Prefix string // Environment variable prefix (default: "LIBSCOUT_")
}

func (s *EnvSource) Name() string  { return "env" }
func (s *EnvSource) Priority() int { return 30 }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}

	if err := k.Load(env.Provider(prefix, ".", func(key string) string {
		return EnvKey(prefix, key)
	}), nil); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}
	return nil
}

// EnvKey maps an environment variable name to its config key.
func EnvKey(prefix, name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, prefix)), "__", ".")
}

// FlagKeys maps command-line flag names to config keys. Flags missing
// from the table are command-local and never reach the configuration.
var FlagKeys = map[string]string{
	"workspace-dir": "workspace.dir",
	"no-workspace":  "workspace.disabled",

	"manifest":    "paths.manifest",
	"repos-dir":   "paths.repos",
	"decoded-dir": "paths.decoded",
	"corpus":      "paths.corpus",
	"index-dir":   "paths.class_index",
	"reports-dir": "paths.reports",
	"summary-dir": "paths.summaries",

	"workers":       "pipeline.workers",
	"force":         "pipeline.force",
	"reindex":       "pipeline.reindex",
	"limit-repos":   "pipeline.limit_repos",
	"limit-targets": "pipeline.limit_targets",
	"log-every":     "pipeline.log_every",

	"max-source-files": "extract.max_source_files",
	"source-parser":    "extract.source_parser",

	"dir-pattern": "index.dir_patterns",
	"head-lines":  "index.head_lines",
}

// FlagSource loads configuration from command-line flags.
type FlagSource struct {
	Flags *pflag.FlagSet
	Debug bool // If true, set log.level to "debug"
}

func (s *FlagSource) Name() string  { return "flags" }
func (s *FlagSource) Priority() int { return 40 }

func (s *FlagSource) Load(k *koanf.Koanf) error {
	if s.Flags != nil {
		provider := posflag.ProviderWithFlag(s.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(s.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return fmt.Errorf("error loading command-line flags: %w", err)
		}
	}

	if s.Debug {
		_ = k.Set("log.level", "debug")
	}
	return nil
}

// DefaultSources returns the standard configuration sources.
// Order: defaults -> file -> .env -> env -> flags
func DefaultSources(configPath string, flags *pflag.FlagSet, debug bool) []ConfigSource {
	return []ConfigSource{
		&DefaultSource{},
		&FileSource{Path: configPath},
		&DotenvSource{},
		&EnvSource{Prefix: EnvPrefix},
		&FlagSource{Flags: flags, Debug: debug},
	}
}
