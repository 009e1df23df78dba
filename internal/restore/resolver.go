package restore

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/planner"
)

// Mode selects where resolved snapshot paths are restored.
type Mode string

const (
	// ModeSource maps each recorded root path back onto itself,
	// read-write.
	ModeSource Mode = "source"
	// ModeStaging maps all recorded root paths under one staging root,
	// preserving relative structure.
	ModeStaging Mode = "staging"
)

// IsValid returns true for a known restore mode.
func (m Mode) IsValid() bool {
	return m == ModeSource || m == ModeStaging
}

// ConfirmToken is the literal value a caller must supply to run a
// mutating restore that was flagged with overwrite risk. Any other
// value, including empty, blocks execution.
const ConfirmToken = "OVERWRITE"

// DefaultStagingRoot holds staged restores when no override is given.
const DefaultStagingRoot = "/var/lib/highball/restore"

// MountMapping maps one snapshot root path to its restore destination.
type MountMapping struct {
	SnapshotPath string
	Target       string
	ReadWrite    bool
}

// Resolver computes restore target mappings from snapshot metadata.
type Resolver struct {
	lister      SnapshotLister
	stagingRoot string
	statFunc    func(string) (os.FileInfo, error)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithStagingRoot overrides the staging root directory.
func WithStagingRoot(root string) ResolverOption {
	return func(r *Resolver) {
		r.stagingRoot = root
	}
}

// WithStatFunc swaps the existence probe; tests use it to simulate
// occupied destinations.
func WithStatFunc(fn func(string) (os.FileInfo, error)) ResolverOption {
	return func(r *Resolver) {
		r.statFunc = fn
	}
}

// NewResolver creates a Resolver over a snapshot lister.
func NewResolver(lister SnapshotLister, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lister:      lister,
		stagingRoot: DefaultStagingRoot,
		statFunc:    os.Stat,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveTargets computes mount mappings for a snapshot. Root paths come
// from the snapshot's own metadata. Jobs reconfigured after the snapshot
// was taken therefore restore the paths the snapshot actually contains,
// not the paths the job lists today.
func (r *Resolver) ResolveTargets(ctx context.Context, job domain.Job, snapshotID string, mode Mode) ([]MountMapping, error) {
	if !mode.IsValid() {
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "mode",
			Detail: fmt.Sprintf("unknown restore mode %q", mode),
		}
	}

	snap, err := r.findSnapshot(ctx, job, snapshotID)
	if err != nil {
		return nil, err
	}
	if len(snap.Paths) == 0 {
		// Fail closed: an empty mapping could read as "mount nothing,
		// restore everywhere".
		return nil, &domain.IntrospectionError{
			Reason: domain.ReasonEmptySnapshot,
			Detail: fmt.Sprintf("snapshot %s records no root paths", snapshotID),
		}
	}

	mappings := make([]MountMapping, 0, len(snap.Paths))
	for _, p := range snap.Paths {
		switch mode {
		case ModeSource:
			mappings = append(mappings, MountMapping{
				SnapshotPath: p,
				Target:       p,
				ReadWrite:    true,
			})
		case ModeStaging:
			mappings = append(mappings, MountMapping{
				SnapshotPath: p,
				Target:       path.Join(r.stagingRoot, strings.TrimPrefix(p, "/")),
				ReadWrite:    true,
			})
		}
	}
	return mappings, nil
}

func (r *Resolver) findSnapshot(ctx context.Context, job domain.Job, snapshotID string) (domain.Snapshot, error) {
	snaps, err := r.lister.Snapshots(ctx, job)
	if err != nil {
		return domain.Snapshot{}, err
	}
	for _, s := range snaps {
		if s.ID == snapshotID || s.ShortID == snapshotID {
			return s, nil
		}
	}
	return domain.Snapshot{}, &domain.IntrospectionError{
		Reason: domain.ReasonIntrospection,
		Detail: fmt.Sprintf("snapshot %q not found for job %s", snapshotID, job.Name),
	}
}

// CheckOverwriteRisk reports whether any selected destination already
// exists. selection filters by snapshot path; empty means the full
// snapshot.
func (r *Resolver) CheckOverwriteRisk(targets []MountMapping, selection []string) (bool, []string) {
	selected := make(map[string]bool, len(selection))
	for _, s := range selection {
		selected[s] = true
	}

	var existing []string
	for _, m := range targets {
		if len(selected) > 0 && !selected[m.SnapshotPath] {
			continue
		}
		if _, err := r.statFunc(m.Target); err == nil {
			existing = append(existing, m.Target)
		}
	}
	return len(existing) > 0, existing
}

// Authorize gates a restore before its plan may execute. Dry runs are
// always permitted. A mutating restore with overwrite risk requires the
// exact confirmation token.
func Authorize(risk bool, riskTargets []string, dryRun bool, token string) error {
	if dryRun || !risk {
		return nil
	}
	if token == ConfirmToken {
		return nil
	}
	return &domain.ConfirmationRequiredError{Targets: riskTargets}
}

// BuildRequest turns resolved mappings into the planner's restore
// request. In source mode restic restores against the filesystem root so
// each snapshot path lands on itself; in staging mode everything lands
// under the staging root.
func BuildRequest(snapshotID string, mode Mode, mappings []MountMapping, selection []string, dryRun bool, stagingRoot string) planner.RestoreRequest {
	req := planner.RestoreRequest{
		SnapshotID: snapshotID,
		DryRun:     dryRun,
	}
	switch mode {
	case ModeStaging:
		if stagingRoot == "" {
			stagingRoot = DefaultStagingRoot
		}
		req.Target = stagingRoot
	default:
		req.Target = "/"
	}
	if len(selection) > 0 {
		req.Includes = append(req.Includes, selection...)
	}
	return req
}
