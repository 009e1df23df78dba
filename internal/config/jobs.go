package config

import (
	"fmt"

	"github.com/ja2ui0/highball/internal/domain"
)

// JobConfig is the on-disk shape of one job definition. Jobs are owned
// by configuration; the core only reads them.
type JobConfig struct {
	Name           string          `mapstructure:"name"`
	Provider       string          `mapstructure:"provider"`
	Schedule       string          `mapstructure:"schedule"`
	Enabled        bool            `mapstructure:"enabled"`
	AvoidConflicts bool            `mapstructure:"avoid_conflicts"`
	Source         EndpointConfig  `mapstructure:"source"`
	Dest           EndpointConfig  `mapstructure:"dest"`
	Paths          []PathConfig    `mapstructure:"paths"`
	Rsync          RsyncJobConfig  `mapstructure:"rsync"`
	Restic         ResticJobConfig `mapstructure:"restic"`
}

// EndpointConfig is the on-disk shape of an endpoint descriptor.
type EndpointConfig struct {
	Kind string `mapstructure:"kind"`
	Host string `mapstructure:"host"`
	User string `mapstructure:"user"`
	Port int    `mapstructure:"port"`
}

// PathConfig is one backed-up path with filter patterns.
type PathConfig struct {
	Path     string   `mapstructure:"path"`
	Includes []string `mapstructure:"includes"`
	Excludes []string `mapstructure:"excludes"`
}

// RsyncJobConfig holds rsync-specific settings.
type RsyncJobConfig struct {
	DestPath     string   `mapstructure:"dest_path"`
	Archive      bool     `mapstructure:"archive"`
	Delete       bool     `mapstructure:"delete"`
	ExtraOptions []string `mapstructure:"extra_options"`
}

// ResticJobConfig holds restic-specific settings.
type ResticJobConfig struct {
	Maintenance         string          `mapstructure:"maintenance"`
	MaintenanceSchedule string          `mapstructure:"maintenance_schedule"`
	ContainerImage      string          `mapstructure:"container_image"`
	Repository          RepositoryTable `mapstructure:"repository"`
}

// RepositoryTable is the on-disk shape of a repository backend.
type RepositoryTable struct {
	Kind     string `mapstructure:"kind"`
	Path     string `mapstructure:"path"`
	Scheme   string `mapstructure:"scheme"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Endpoint string `mapstructure:"endpoint"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Remote   string `mapstructure:"remote"`
	User     string `mapstructure:"user"`
}

// Validate checks structural job fields. Provider-specific field
// completeness (repository URIs etc.) is validated again at plan time.
func (j *JobConfig) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if !domain.Provider(j.Provider).IsValid() {
		return fmt.Errorf("job %q: provider must be one of: rsync, restic", j.Name)
	}
	if j.Schedule == "" {
		return fmt.Errorf("job %q: schedule is required", j.Name)
	}
	if len(j.Paths) == 0 {
		return fmt.Errorf("job %q: at least one path is required", j.Name)
	}
	for _, ep := range []EndpointConfig{j.Source, j.Dest} {
		kind := domain.EndpointKind(ep.Kind)
		switch kind {
		case domain.EndpointLocal, domain.EndpointSSH, domain.EndpointDaemon, "":
		default:
			return fmt.Errorf("job %q: endpoint kind must be one of: local, ssh, daemon", j.Name)
		}
		if (kind == domain.EndpointSSH || kind == domain.EndpointDaemon) && ep.Host == "" {
			return fmt.Errorf("job %q: remote endpoints need a host", j.Name)
		}
	}
	if j.Provider == string(domain.ProviderRestic) {
		mode := domain.MaintenanceMode(j.Restic.Maintenance)
		if j.Restic.Maintenance != "" && !mode.IsValid() {
			return fmt.Errorf("job %q: restic.maintenance must be one of: auto, user, off", j.Name)
		}
		if mode == domain.MaintenanceUser && j.Restic.MaintenanceSchedule == "" {
			return fmt.Errorf("job %q: restic.maintenance_schedule is required for user-defined maintenance", j.Name)
		}
		for _, p := range j.Paths {
			if len(p.Includes) > 0 {
				return fmt.Errorf("job %q: include patterns are not supported for restic jobs", j.Name)
			}
		}
	}
	return nil
}

// Job converts the on-disk definition to the domain model.
func (j *JobConfig) Job() domain.Job {
	maint := domain.MaintenanceMode(j.Restic.Maintenance)
	if j.Restic.Maintenance == "" {
		maint = domain.MaintenanceAuto
	}

	paths := make([]domain.PathSpec, 0, len(j.Paths))
	for _, p := range j.Paths {
		paths = append(paths, domain.PathSpec{
			Path:     p.Path,
			Includes: p.Includes,
			Excludes: p.Excludes,
		})
	}

	return domain.Job{
		Name:           j.Name,
		Provider:       domain.Provider(j.Provider),
		Schedule:       j.Schedule,
		Enabled:        j.Enabled,
		AvoidConflicts: j.AvoidConflicts,
		Source:         endpointFromConfig(j.Source),
		Dest:           endpointFromConfig(j.Dest),
		Paths:          paths,
		Rsync: domain.RsyncConfig{
			DestPath:     j.Rsync.DestPath,
			Archive:      j.Rsync.Archive,
			Delete:       j.Rsync.Delete,
			ExtraOptions: j.Rsync.ExtraOptions,
		},
		Restic: domain.ResticConfig{
			Maintenance:         maint,
			MaintenanceSchedule: j.Restic.MaintenanceSchedule,
			ContainerImage:      j.Restic.ContainerImage,
			Repository: domain.RepositoryConfig{
				Kind:     domain.RepositoryKind(j.Restic.Repository.Kind),
				Path:     j.Restic.Repository.Path,
				Scheme:   j.Restic.Repository.Scheme,
				Host:     j.Restic.Repository.Host,
				Port:     j.Restic.Repository.Port,
				Endpoint: j.Restic.Repository.Endpoint,
				Bucket:   j.Restic.Repository.Bucket,
				Prefix:   j.Restic.Repository.Prefix,
				Remote:   j.Restic.Repository.Remote,
				User:     j.Restic.Repository.User,
			},
		},
	}
}

func endpointFromConfig(ep EndpointConfig) domain.Endpoint {
	kind := domain.EndpointKind(ep.Kind)
	if kind == "" {
		kind = domain.EndpointLocal
	}
	return domain.Endpoint{
		Kind: kind,
		Host: ep.Host,
		User: ep.User,
		Port: ep.Port,
	}
}

// DomainJobs converts all configured jobs to the domain model.
func (c *Config) DomainJobs() []domain.Job {
	jobs := make([]domain.Job, 0, len(c.Jobs))
	for i := range c.Jobs {
		jobs = append(jobs, c.Jobs[i].Job())
	}
	return jobs
}
