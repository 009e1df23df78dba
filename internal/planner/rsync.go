package planner

import (
	"fmt"
	"path"
	"strings"

	"github.com/ja2ui0/highball/internal/domain"
)

// rsync accepts a single source argument per invocation, so a multi-path
// job plans one operation per path. All operations share the job-level
// flag set; includes/excludes are per path.

func (p *Planner) planRsync(job domain.Job, route domain.Route) (*domain.CommandPlan, error) {
	if len(job.Paths) == 0 {
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonMissingField,
			Field:  "paths",
			Detail: "job has no paths",
		}
	}
	if job.Rsync.DestPath == "" {
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonMissingField,
			Field:  "dest_path",
			Detail: "rsync jobs need a destination path",
		}
	}

	plan := &domain.CommandPlan{JobName: job.Name}
	flags := rsyncFlags(job.Rsync)

	// Daemon endpoints authenticate through RSYNC_PASSWORD; the value is
	// resolved at execution time, operations carry only the name.
	var env []string
	if job.Source.Kind == domain.EndpointDaemon || job.Dest.Kind == domain.EndpointDaemon {
		env = []string{"RSYNC_PASSWORD"}
	}

	for _, spec := range job.Paths {
		args := make([]string, 0, len(flags)+len(spec.Includes)+len(spec.Excludes)+2)
		args = append(args, flags...)
		// Include patterns must precede excludes so they take priority
		// in rsync's first-match filter chain.
		for _, inc := range spec.Includes {
			args = append(args, "--include="+inc)
		}
		for _, exc := range spec.Excludes {
			args = append(args, "--exclude="+exc)
		}

		src, err := rsyncArg(job.Source, spec.Path, route)
		if err != nil {
			return nil, err
		}
		dst, err := rsyncArg(job.Dest, destPathFor(job, spec.Path), route)
		if err != nil {
			return nil, err
		}
		args = append(args, src, dst)

		plan.Operations = append(plan.Operations, domain.Operation{
			Kind:     domain.OpBackup,
			Binary:   "rsync",
			Args:     args,
			Route:    route,
			EnvNames: env,
		})
	}
	return plan, nil
}

func rsyncFlags(cfg domain.RsyncConfig) []string {
	if len(cfg.ExtraOptions) > 0 {
		// Per-job options replace the defaults entirely.
		return append([]string(nil), cfg.ExtraOptions...)
	}
	var flags []string
	if cfg.Archive {
		flags = append(flags, "-a")
	}
	if cfg.Delete {
		flags = append(flags, "--delete")
	}
	return flags
}

// destPathFor maps a source path into the job's destination base. A
// single-path job writes directly to the base; multi-path jobs get one
// subdirectory per source path.
func destPathFor(job domain.Job, srcPath string) string {
	if len(job.Paths) == 1 {
		return job.Rsync.DestPath
	}
	return path.Join(job.Rsync.DestPath, path.Base(strings.TrimRight(srcPath, "/")))
}

// rsyncArg renders one side of the transfer in the syntax the resolved
// route requires.
func rsyncArg(ep domain.Endpoint, p string, route domain.Route) (string, error) {
	switch ep.Kind {
	case domain.EndpointLocal:
		return p, nil

	case domain.EndpointSSH:
		if route.Kind == domain.RouteSSH && ep.Host == route.Host {
			// The tool runs on this host, so its path is local there.
			return p, nil
		}
		return ep.UserHost() + ":" + p, nil

	case domain.EndpointDaemon:
		var b strings.Builder
		b.WriteString("rsync://")
		b.WriteString(ep.UserHost())
		if ep.Port > 0 {
			fmt.Fprintf(&b, ":%d", ep.Port)
		}
		b.WriteString("/")
		b.WriteString(strings.TrimPrefix(p, "/"))
		return b.String(), nil

	default:
		return "", &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "endpoint",
			Detail: fmt.Sprintf("unknown endpoint kind %q", ep.Kind),
		}
	}
}
