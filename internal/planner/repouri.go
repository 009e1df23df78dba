package planner

import (
	"fmt"
	"strings"

	"github.com/ja2ui0/highball/internal/domain"
)

// BuildRepoURI constructs the restic repository URI for a backend
// configuration. Dispatch is exhaustive over the closed kind union; each
// builder validates its own required fields and fails with a
// *domain.ConstructionError naming the missing field before any
// operation is built.
func BuildRepoURI(cfg domain.RepositoryConfig) (string, error) {
	switch cfg.Kind {
	case domain.RepoLocal:
		return buildLocalURI(cfg)
	case domain.RepoRest:
		return buildRestURI(cfg)
	case domain.RepoS3:
		return buildS3URI(cfg)
	case domain.RepoRclone:
		return buildRcloneURI(cfg)
	case domain.RepoSFTP:
		return buildSFTPURI(cfg)
	default:
		return "", &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "kind",
			Detail: fmt.Sprintf("unknown repository kind %q", cfg.Kind),
		}
	}
}

func missingField(field string) error {
	return &domain.ConstructionError{
		Reason: domain.ReasonMissingField,
		Field:  field,
		Detail: "required for this repository kind",
	}
}

func buildLocalURI(cfg domain.RepositoryConfig) (string, error) {
	if cfg.Path == "" {
		return "", missingField("path")
	}
	return cfg.Path, nil
}

func buildRestURI(cfg domain.RepositoryConfig) (string, error) {
	if cfg.Scheme == "" {
		return "", missingField("scheme")
	}
	if cfg.Host == "" {
		return "", missingField("host")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "rest:%s://%s", cfg.Scheme, cfg.Host)
	if cfg.Port > 0 {
		fmt.Fprintf(&b, ":%d", cfg.Port)
	}
	if cfg.Path != "" {
		fmt.Fprintf(&b, "/%s", strings.TrimPrefix(cfg.Path, "/"))
	}
	return b.String(), nil
}

func buildS3URI(cfg domain.RepositoryConfig) (string, error) {
	if cfg.Endpoint == "" {
		return "", missingField("endpoint")
	}
	if cfg.Bucket == "" {
		return "", missingField("bucket")
	}
	uri := fmt.Sprintf("s3:%s/%s", cfg.Endpoint, cfg.Bucket)
	if cfg.Prefix != "" {
		uri += "/" + strings.TrimPrefix(cfg.Prefix, "/")
	}
	return uri, nil
}

func buildRcloneURI(cfg domain.RepositoryConfig) (string, error) {
	if cfg.Remote == "" {
		return "", missingField("remote")
	}
	if cfg.Path == "" {
		return "", missingField("path")
	}
	return fmt.Sprintf("%s:%s", cfg.Remote, cfg.Path), nil
}

func buildSFTPURI(cfg domain.RepositoryConfig) (string, error) {
	if cfg.User == "" {
		return "", missingField("user")
	}
	if cfg.Host == "" {
		return "", missingField("host")
	}
	if cfg.Path == "" {
		return "", missingField("path")
	}
	return fmt.Sprintf("sftp:%s@%s:%s", cfg.User, cfg.Host, cfg.Path), nil
}

// RequiredEnv lists the environment-variable names a repository backend
// needs at execution time. Operations carry only the names; values come
// from the secrets collaborator when the process is spawned.
func RequiredEnv(kind domain.RepositoryKind) []string {
	names := []string{"RESTIC_PASSWORD"}
	switch kind {
	case domain.RepoRest:
		names = append(names, "RESTIC_REST_USERNAME", "RESTIC_REST_PASSWORD")
	case domain.RepoS3:
		names = append(names, "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY")
	case domain.RepoLocal, domain.RepoRclone, domain.RepoSFTP:
		// Credentials ride the password file, rclone config, or ssh agent.
	}
	return names
}
