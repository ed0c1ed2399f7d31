// Package config reads defaults for the command line from the environment
// and an optional .env file. Flags given on the command line win.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "FLAKE_GRAPH_"

type Config struct {
	LockFile    string
	RankDir     string
	ColorScheme string
	Shape       string
	Output      string
	NoColor     bool
}

// Load reads the given dotenv files, or ".env" when none are given, into the
// process environment without overriding variables that are already set, and
// then builds a Config from the environment. A missing dotenv file is not an
// error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		LockFile:    firstNonEmpty(getenv("LOCKFILE"), "flake.lock"),
		RankDir:     firstNonEmpty(getenv("RANKDIR"), "LR"),
		ColorScheme: firstNonEmpty(getenv("COLORSCHEME"), "oranges9"),
		Shape:       firstNonEmpty(getenv("SHAPE"), "record"),
		Output:      firstNonEmpty(getenv("OUTPUT"), "pretty"),
		NoColor:     IsNoColor(),
	}, nil
}

// IsNoColor reports whether NO_COLOR is present, whatever its value.
func IsNoColor() bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	return noColor
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
