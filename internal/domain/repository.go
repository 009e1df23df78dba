package domain

// RepositoryKind identifies a restic repository backend.
type RepositoryKind string

const (
	// RepoLocal is a plain filesystem path.
	RepoLocal RepositoryKind = "local"
	// RepoRest is a restic REST server.
	RepoRest RepositoryKind = "rest"
	// RepoS3 is S3-compatible object storage.
	RepoS3 RepositoryKind = "s3"
	// RepoRclone delegates to an rclone remote.
	RepoRclone RepositoryKind = "rclone"
	// RepoSFTP is a repository reached over SFTP.
	RepoSFTP RepositoryKind = "sftp"
)

// String returns the string representation of the repository kind.
func (k RepositoryKind) String() string {
	return string(k)
}

// IsValid returns true if the repository kind is a known backend.
func (k RepositoryKind) IsValid() bool {
	switch k {
	case RepoLocal, RepoRest, RepoS3, RepoRclone, RepoSFTP:
		return true
	default:
		return false
	}
}

// RepositoryConfig holds the structured fields for one repository backend.
// Only the fields for the configured Kind are meaningful; each URI builder
// validates its own required fields.
type RepositoryConfig struct {
	Kind RepositoryKind

	// local
	Path string

	// rest
	Scheme string
	Host   string
	Port   int

	// s3
	Endpoint string
	Bucket   string
	Prefix   string

	// rclone
	Remote string

	// sftp
	User string
}
