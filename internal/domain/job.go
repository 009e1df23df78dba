// Package domain defines core business types and interfaces.
package domain

// Provider identifies the backup tool a job uses.
type Provider string

const (
	// ProviderRsync is the file-sync provider (one transfer per path).
	ProviderRsync Provider = "rsync"
	// ProviderRestic is the snapshot-repository provider.
	ProviderRestic Provider = "restic"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// IsValid returns true if the provider is a known kind.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderRsync, ProviderRestic:
		return true
	default:
		return false
	}
}

// EndpointKind describes where a source or destination lives.
type EndpointKind string

const (
	// EndpointLocal is a path on the host running highball.
	EndpointLocal EndpointKind = "local"
	// EndpointSSH is a path reached over SSH.
	EndpointSSH EndpointKind = "ssh"
	// EndpointDaemon is an rsync daemon module.
	EndpointDaemon EndpointKind = "daemon"
)

// Endpoint describes one side of a transfer.
type Endpoint struct {
	Kind EndpointKind
	Host string
	User string
	Port int
}

// IsRemote returns true for SSH and daemon endpoints.
func (e Endpoint) IsRemote() bool {
	return e.Kind == EndpointSSH || e.Kind == EndpointDaemon
}

// UserHost returns "user@host" or just "host" when no user is set.
func (e Endpoint) UserHost() string {
	if e.User == "" {
		return e.Host
	}
	return e.User + "@" + e.Host
}

// PathSpec is one backed-up path with its filter patterns.
type PathSpec struct {
	Path     string
	Includes []string
	Excludes []string
}

// MaintenanceMode selects how repository maintenance is scheduled.
type MaintenanceMode string

const (
	// MaintenanceAuto appends maintenance when a time/count threshold is exceeded.
	MaintenanceAuto MaintenanceMode = "auto"
	// MaintenanceUser runs maintenance on its own schedule only.
	MaintenanceUser MaintenanceMode = "user"
	// MaintenanceOff never runs maintenance.
	MaintenanceOff MaintenanceMode = "off"
)

// IsValid returns true if the maintenance mode is a known value.
func (m MaintenanceMode) IsValid() bool {
	switch m {
	case MaintenanceAuto, MaintenanceUser, MaintenanceOff:
		return true
	default:
		return false
	}
}

// RsyncConfig holds rsync-specific job settings.
type RsyncConfig struct {
	// DestPath is the base destination path (or daemon module path).
	DestPath string
	// Archive enables -a.
	Archive bool
	// Delete enables --delete.
	Delete bool
	// ExtraOptions replaces the default flag set when non-empty.
	ExtraOptions []string
}

// ResticConfig holds restic-specific job settings.
type ResticConfig struct {
	Repository      RepositoryConfig
	Maintenance     MaintenanceMode
	// MaintenanceSchedule is a cron expression, used when Maintenance is "user".
	MaintenanceSchedule string
	// ContainerImage, when set, wraps remote invocations in a container run.
	ContainerImage string
}

// Job is one configured backup job. Jobs are created and edited by the
// configuration collaborator; this core only writes back last-run status.
type Job struct {
	Name           string
	Source         Endpoint
	Dest           Endpoint
	Provider       Provider
	Rsync          RsyncConfig
	Restic         ResticConfig
	Paths          []PathSpec
	Schedule       string
	Enabled        bool
	AvoidConflicts bool
}
