package config

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the first readable .env file from dir. Variables already
// set in the process environment are not overwritten.
func loadEnvFiles(dir string) {
	for _, name := range envFiles {
		path := name
		if dir != "" {
			path = dir + string(os.PathSeparator) + name
		}
		err := godotenv.Load(path)
		if err == nil {
			slog.Debug("Loaded environment file", "path", path)
			return
		}
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Could not load environment file", "path", path, "error", err)
		}
	}
}
