package deploy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrEnvFileMissing is returned when the deployment env file does not exist
var ErrEnvFileMissing = errors.New("env file not found")

// Settings describes what a deployment pulls, builds and restarts.
// Values come from the env file only, never from the calling shell.
type Settings struct {
	GitRemote   string   `env:"DEPLOY_GIT_REMOTE" envDefault:"origin"`
	GitBranch   string   `env:"DEPLOY_GIT_BRANCH" envDefault:"main"`
	ComposeFile string   `env:"DEPLOY_COMPOSE_FILE" envDefault:"docker-compose.yml"`
	ProjectName string   `env:"COMPOSE_PROJECT_NAME"`
	Services    []string `env:"DEPLOY_SERVICES" envSeparator:"," envDefault:"backend,frontend"`
	LogTail     int      `env:"DEPLOY_LOG_TAIL" envDefault:"50"`

	// Vars holds every variable of the env file; they are passed to each command
	Vars map[string]string
}

// LoadSettings reads and decodes the env file at path
func LoadSettings(path string) (*Settings, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEnvFileMissing, path)
		}
		return nil, fmt.Errorf("failed to stat env file: %w", err)
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", filepath.Base(path), err)
	}

	settings := &Settings{}
	if err := env.ParseWithOptions(settings, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to decode env file: %w", err)
	}
	if len(settings.Services) == 0 {
		return nil, errors.New("DEPLOY_SERVICES must name at least one service")
	}
	if settings.LogTail <= 0 {
		return nil, fmt.Errorf("invalid DEPLOY_LOG_TAIL: %d", settings.LogTail)
	}
	settings.Vars = vars

	return settings, nil
}

// Environ returns the variables in KEY=VALUE form
func (s *Settings) Environ() []string {
	environ := make([]string, 0, len(s.Vars))
	for k, v := range s.Vars {
		environ = append(environ, k+"="+v)
	}
	return environ
}
