package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja2ui0/highball/internal/domain"
)

type mockProber struct {
	InitializedFunc func(ctx context.Context, job domain.Job, repoURI string, envNames []string) (bool, error)
}

func (m *mockProber) Initialized(ctx context.Context, job domain.Job, repoURI string, envNames []string) (bool, error) {
	if m.InitializedFunc != nil {
		return m.InitializedFunc(ctx, job, repoURI, envNames)
	}
	return true, nil
}

type mockSink struct {
	WriteFunc  func(ctx context.Context, record *domain.ExecutionRecord) error
	StatusFunc func(jobName string) (domain.JobStatus, bool)
}

func (m *mockSink) Write(ctx context.Context, record *domain.ExecutionRecord) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, record)
	}
	return nil
}

func (m *mockSink) Status(jobName string) (domain.JobStatus, bool) {
	if m.StatusFunc != nil {
		return m.StatusFunc(jobName)
	}
	return domain.JobStatus{}, false
}

func resticJob() domain.Job {
	return domain.Job{
		Name:     "documents",
		Provider: domain.ProviderRestic,
		Source:   domain.Endpoint{Kind: domain.EndpointLocal},
		Restic: domain.ResticConfig{
			Repository: domain.RepositoryConfig{
				Kind: domain.RepoLocal,
				Path: "/srv/restic/documents",
			},
			Maintenance: domain.MaintenanceOff,
		},
		Paths: []domain.PathSpec{{Path: "/home/user/documents"}},
	}
}

func TestPlanner_Plan_ResticBackup(t *testing.T) {
	p := testPlanner(WithProber(&mockProber{}))

	plan, err := p.Plan(context.Background(), resticJob(), PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)

	op := plan.Operations[0]
	assert.Equal(t, domain.OpBackup, op.Kind)
	assert.Equal(t, "restic", op.Binary)
	assert.Equal(t, []string{
		"-r", "/srv/restic/documents",
		"backup", "--tag", "documents",
		"/home/user/documents",
	}, op.Args)
	assert.Equal(t, []string{"RESTIC_PASSWORD"}, op.EnvNames)
}

func TestPlanner_Plan_ResticInitWhenUninitialized(t *testing.T) {
	p := testPlanner(WithProber(&mockProber{
		InitializedFunc: func(_ context.Context, _ domain.Job, _ string, _ []string) (bool, error) {
			return false, nil
		},
	}))

	plan, err := p.Plan(context.Background(), resticJob(), PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Operations, 2)

	assert.Equal(t, domain.OpInit, plan.Operations[0].Kind)
	assert.Equal(t, []string{"-r", "/srv/restic/documents", "init"}, plan.Operations[0].Args)
	assert.Equal(t, domain.OpBackup, plan.Operations[1].Kind)
}

func TestPlanner_Plan_ResticExcludes(t *testing.T) {
	p := testPlanner(WithProber(&mockProber{}))
	job := resticJob()
	job.Paths = []domain.PathSpec{
		{Path: "/home/user/documents", Excludes: []string{"*.tmp"}},
		{Path: "/home/user/projects", Excludes: []string{"node_modules"}},
	}

	plan, err := p.Plan(context.Background(), job, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)

	// One backup operation covers every path.
	assert.Equal(t, []string{
		"-r", "/srv/restic/documents",
		"backup", "--tag", "documents",
		"--exclude=*.tmp", "--exclude=node_modules",
		"/home/user/documents", "/home/user/projects",
	}, plan.Operations[0].Args)
}

func TestPlanner_Plan_ResticRejectsIncludes(t *testing.T) {
	p := testPlanner(WithProber(&mockProber{}))
	job := resticJob()
	job.Paths = []domain.PathSpec{
		{Path: "/home/user/documents", Includes: []string{"*.pdf"}},
	}

	_, err := p.Plan(context.Background(), job, PlanOptions{})
	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
	assert.Equal(t, "includes", consErr.Field)
}

func TestPlanner_Plan_ResticMaintenanceOff(t *testing.T) {
	p := testPlanner(WithProber(&mockProber{}))

	plan, err := p.Plan(context.Background(), resticJob(), PlanOptions{ForceMaintenance: true})
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, domain.OpBackup, plan.Operations[0].Kind)
}

func TestPlanner_Plan_ResticMaintenanceUserOnlyWhenForced(t *testing.T) {
	p := testPlanner(WithProber(&mockProber{}))
	job := resticJob()
	job.Restic.Maintenance = domain.MaintenanceUser

	plan, err := p.Plan(context.Background(), job, PlanOptions{})
	require.NoError(t, err)
	assert.Len(t, plan.Operations, 1)

	plan, err = p.Plan(context.Background(), job, PlanOptions{ForceMaintenance: true})
	require.NoError(t, err)
	require.Len(t, plan.Operations, 3)

	forget := plan.Operations[1]
	assert.Equal(t, domain.OpMaintenance, forget.Kind)
	assert.Equal(t, []string{"-r", "/srv/restic/documents", "forget", "--prune", "--keep-last", "30"}, forget.Args)
	assert.True(t, forget.BestEffort)

	check := plan.Operations[2]
	assert.Equal(t, domain.OpCheck, check.Kind)
	assert.True(t, check.BestEffort)
}

func TestPlanner_Plan_ResticMaintenanceAutoThresholds(t *testing.T) {
	job := resticJob()
	job.Restic.Maintenance = domain.MaintenanceAuto

	tests := []struct {
		name     string
		status   domain.JobStatus
		ok       bool
		expected bool
	}{
		{"never ran", domain.JobStatus{}, false, true},
		{"never maintained", domain.JobStatus{LastRun: time.Now()}, true, true},
		{
			"recently maintained",
			domain.JobStatus{LastMaintenance: time.Now().Add(-time.Hour), RunsSinceMaintenance: 2},
			true, false,
		},
		{
			"age threshold exceeded",
			domain.JobStatus{LastMaintenance: time.Now().Add(-8 * 24 * time.Hour)},
			true, true,
		},
		{
			"run-count threshold exceeded",
			domain.JobStatus{LastMaintenance: time.Now().Add(-time.Hour), RunsSinceMaintenance: 30},
			true, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPlanner(
				WithProber(&mockProber{}),
				WithRecordSink(&mockSink{
					StatusFunc: func(string) (domain.JobStatus, bool) {
						return tt.status, tt.ok
					},
				}),
			)

			plan, err := p.Plan(context.Background(), job, PlanOptions{})
			require.NoError(t, err)

			hasMaintenance := false
			for _, op := range plan.Operations {
				if op.Kind == domain.OpMaintenance {
					hasMaintenance = true
				}
			}
			assert.Equal(t, tt.expected, hasMaintenance)
		})
	}
}

func TestPlanner_Plan_ResticRepoErrorBeforeAnyOperation(t *testing.T) {
	p := testPlanner(WithProber(&mockProber{}))
	job := resticJob()
	job.Restic.Repository = domain.RepositoryConfig{Kind: domain.RepoS3, Endpoint: "s3.example.com"}

	_, err := p.Plan(context.Background(), job, PlanOptions{})
	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
	assert.Equal(t, "bucket", consErr.Field)
}

func TestPlanner_SnapshotsOperation(t *testing.T) {
	p := testPlanner()

	op, err := p.SnapshotsOperation(resticJob())
	require.NoError(t, err)
	assert.Equal(t, []string{"-r", "/srv/restic/documents", "snapshots", "--json", "--tag", "documents"}, op.Args)
	assert.Equal(t, domain.RouteLocal, op.Route.Kind)
}

func TestPlanner_SnapshotsOperation_RejectsRsync(t *testing.T) {
	p := testPlanner()

	_, err := p.SnapshotsOperation(rsyncJob())
	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
}

func TestPlanner_RestorePlan(t *testing.T) {
	p := testPlanner()

	plan, err := p.RestorePlan(context.Background(), resticJob(), RestoreRequest{
		SnapshotID: "a1b2c3d4",
		Target:     "/var/lib/highball/restore",
		Includes:   []string{"/home/user/documents"},
		DryRun:     true,
	})
	require.NoError(t, err)
	require.Len(t, plan.Operations, 1)

	op := plan.Operations[0]
	assert.Equal(t, domain.OpRestore, op.Kind)
	assert.Equal(t, []string{
		"-r", "/srv/restic/documents",
		"restore", "a1b2c3d4",
		"--target", "/var/lib/highball/restore",
		"--include", "/home/user/documents",
		"--dry-run",
	}, op.Args)
}

func TestPlanner_RestorePlan_RequiresTarget(t *testing.T) {
	p := testPlanner()

	_, err := p.RestorePlan(context.Background(), resticJob(), RestoreRequest{SnapshotID: "a1b2c3d4"})
	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
	assert.Equal(t, "target", consErr.Field)
}

func TestResourceIDs_Restic(t *testing.T) {
	ids, err := ResourceIDs(resticJob())
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/restic/documents"}, ids)
}
