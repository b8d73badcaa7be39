// Package config reads logicrun defaults from the environment.
// Command-line flags override every value loaded here.
package config

import (
	"os"
	"strings"

	"github.com/roach88/logicrun/internal/fingerprint"
)

// Environment variable names.
const (
	EnvTasksDir  = "LOGICRUN_TASKS_DIR"
	EnvRegistry  = "LOGICRUN_REGISTRY"
	EnvDB        = "LOGICRUN_DB"
	EnvExclude   = "LOGICRUN_EXCLUDE"
	EnvAlgorithm = "LOGICRUN_ALGORITHM"
)

// Config holds run configuration.
type Config struct {
	// TasksDir holds one directory per task unit.
	TasksDir string

	// RegistryPath is a YAML or CUE registry file. Empty means none.
	RegistryPath string

	// DBPath is the SQLite database for the registry table and run history.
	// Empty means none.
	DBPath string

	// Exclude lists directory names left out of fingerprints.
	Exclude []string

	// Algorithm is the fingerprint digest name.
	Algorithm string
}

// Load loads configuration from environment variables.
func Load() *Config {
	tasksDir := os.Getenv(EnvTasksDir)
	if tasksDir == "" {
		tasksDir = "."
	}

	exclude := SplitList(os.Getenv(EnvExclude))
	if len(exclude) == 0 {
		exclude = append([]string(nil), fingerprint.DefaultExclude...)
	}

	algorithm := os.Getenv(EnvAlgorithm)
	if algorithm == "" {
		algorithm = string(fingerprint.AlgorithmMD5)
	}

	return &Config{
		TasksDir:     tasksDir,
		RegistryPath: os.Getenv(EnvRegistry),
		DBPath:       os.Getenv(EnvDB),
		Exclude:      exclude,
		Algorithm:    algorithm,
	}
}

// SplitList splits a comma-separated list, dropping blank items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
