package config

import (
	"os"
	"strings"

	"github.com/ja2ui0/highball/internal/domain"
)

// EnvSecretStore resolves per-job secrets from the process environment.
// A job-scoped variable HIGHBALL_SECRET_<JOB>_<NAME> takes precedence
// over a bare <NAME>. Values are resolved at execution time and never
// written anywhere by this core.
type EnvSecretStore struct {
	// Names limits resolution to known secret variables.
	Names []string
}

// NewEnvSecretStore creates a store resolving the standard provider
// secret names.
func NewEnvSecretStore() *EnvSecretStore {
	return &EnvSecretStore{
		Names: []string{
			"RESTIC_PASSWORD",
			"RESTIC_REST_USERNAME",
			"RESTIC_REST_PASSWORD",
			"AWS_ACCESS_KEY_ID",
			"AWS_SECRET_ACCESS_KEY",
			"RSYNC_PASSWORD",
		},
	}
}

// Resolve returns the secret environment for a job.
func (s *EnvSecretStore) Resolve(jobName string) (map[string]string, error) {
	secrets := make(map[string]string)
	jobKey := sanitizeEnvKey(jobName)

	for _, name := range s.Names {
		if v, ok := os.LookupEnv(EnvPrefix + "_SECRET_" + jobKey + "_" + name); ok {
			secrets[name] = v
			continue
		}
		if v, ok := os.LookupEnv(name); ok {
			secrets[name] = v
		}
	}
	return secrets, nil
}

// sanitizeEnvKey maps a job name onto environment-variable-safe
// characters.
func sanitizeEnvKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ domain.SecretStore = (*EnvSecretStore)(nil)
