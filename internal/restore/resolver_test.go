package restore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja2ui0/highball/internal/domain"
)

func listerWith(snaps ...domain.Snapshot) *MockLister {
	return &MockLister{
		SnapshotsFunc: func(_ context.Context, _ domain.Job) ([]domain.Snapshot, error) {
			return snaps, nil
		},
	}
}

func neverExists(string) (os.FileInfo, error) {
	return nil, os.ErrNotExist
}

func testJob() domain.Job {
	return domain.Job{
		Name:     "documents",
		Provider: domain.ProviderRestic,
		// The job's current paths deliberately differ from what the
		// snapshot recorded; resolution must follow the snapshot.
		Paths: []domain.PathSpec{{Path: "/data/c"}},
	}
}

func TestResolver_ResolveTargets_SourceModeFollowsSnapshotMetadata(t *testing.T) {
	lister := listerWith(domain.Snapshot{
		ID:      "a1b2c3d4e5f6",
		ShortID: "a1b2c3d4",
		Paths:   []string{"/data/a", "/data/b"},
	})
	r := NewResolver(lister, WithStatFunc(neverExists))

	targets, err := r.ResolveTargets(context.Background(), testJob(), "a1b2c3d4", ModeSource)
	require.NoError(t, err)

	assert.Equal(t, []MountMapping{
		{SnapshotPath: "/data/a", Target: "/data/a", ReadWrite: true},
		{SnapshotPath: "/data/b", Target: "/data/b", ReadWrite: true},
	}, targets)
}

func TestResolver_ResolveTargets_StagingMode(t *testing.T) {
	lister := listerWith(domain.Snapshot{
		ID:    "a1b2c3d4e5f6",
		Paths: []string{"/data/a", "/home/user/documents"},
	})
	r := NewResolver(lister, WithStagingRoot("/restore"), WithStatFunc(neverExists))

	targets, err := r.ResolveTargets(context.Background(), testJob(), "a1b2c3d4e5f6", ModeStaging)
	require.NoError(t, err)

	assert.Equal(t, []MountMapping{
		{SnapshotPath: "/data/a", Target: "/restore/data/a", ReadWrite: true},
		{SnapshotPath: "/home/user/documents", Target: "/restore/home/user/documents", ReadWrite: true},
	}, targets)
}

func TestResolver_ResolveTargets_MatchesFullOrShortID(t *testing.T) {
	lister := listerWith(domain.Snapshot{
		ID:      "a1b2c3d4e5f6",
		ShortID: "a1b2c3d4",
		Paths:   []string{"/data/a"},
	})
	r := NewResolver(lister, WithStatFunc(neverExists))

	for _, id := range []string{"a1b2c3d4e5f6", "a1b2c3d4"} {
		_, err := r.ResolveTargets(context.Background(), testJob(), id, ModeSource)
		assert.NoError(t, err)
	}
}

func TestResolver_ResolveTargets_UnknownSnapshot(t *testing.T) {
	r := NewResolver(listerWith(), WithStatFunc(neverExists))

	_, err := r.ResolveTargets(context.Background(), testJob(), "deadbeef", ModeSource)
	var introErr *domain.IntrospectionError
	require.ErrorAs(t, err, &introErr)
	assert.Equal(t, domain.ReasonIntrospection, introErr.Reason)
}

func TestResolver_ResolveTargets_EmptyPathsFailClosed(t *testing.T) {
	lister := listerWith(domain.Snapshot{ID: "a1b2c3d4e5f6", Paths: nil})
	r := NewResolver(lister, WithStatFunc(neverExists))

	_, err := r.ResolveTargets(context.Background(), testJob(), "a1b2c3d4e5f6", ModeSource)
	var introErr *domain.IntrospectionError
	require.ErrorAs(t, err, &introErr)
	assert.Equal(t, domain.ReasonEmptySnapshot, introErr.Reason)
}

func TestResolver_ResolveTargets_InvalidMode(t *testing.T) {
	r := NewResolver(listerWith(), WithStatFunc(neverExists))

	_, err := r.ResolveTargets(context.Background(), testJob(), "a1b2c3d4", Mode("inplace"))
	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
	assert.Equal(t, "mode", consErr.Field)
}

func TestResolver_CheckOverwriteRisk(t *testing.T) {
	targets := []MountMapping{
		{SnapshotPath: "/data/a", Target: "/data/a"},
		{SnapshotPath: "/data/b", Target: "/data/b"},
	}

	r := NewResolver(listerWith(), WithStatFunc(func(p string) (os.FileInfo, error) {
		if p == "/data/a" {
			return nil, nil
		}
		return nil, os.ErrNotExist
	}))

	risk, existing := r.CheckOverwriteRisk(targets, nil)
	assert.True(t, risk)
	assert.Equal(t, []string{"/data/a"}, existing)

	// Selection excluding the occupied path removes the risk.
	risk, existing = r.CheckOverwriteRisk(targets, []string{"/data/b"})
	assert.False(t, risk)
	assert.Empty(t, existing)
}

func TestResolver_CheckOverwriteRisk_CleanDestinations(t *testing.T) {
	r := NewResolver(listerWith(), WithStatFunc(neverExists))
	risk, existing := r.CheckOverwriteRisk([]MountMapping{
		{SnapshotPath: "/data/a", Target: "/data/a"},
	}, nil)
	assert.False(t, risk)
	assert.Empty(t, existing)
}

func TestAuthorize(t *testing.T) {
	riskTargets := []string{"/data/a"}

	// No risk: always permitted.
	assert.NoError(t, Authorize(false, nil, false, ""))

	// Dry run: permitted even with risk.
	assert.NoError(t, Authorize(true, riskTargets, true, ""))

	// Risk with the exact token: permitted.
	assert.NoError(t, Authorize(true, riskTargets, false, ConfirmToken))

	// Risk without the token: blocked.
	err := Authorize(true, riskTargets, false, "")
	var confirmErr *domain.ConfirmationRequiredError
	require.ErrorAs(t, err, &confirmErr)
	assert.Equal(t, riskTargets, confirmErr.Targets)

	// A near-miss token is still blocked.
	err = Authorize(true, riskTargets, false, "overwrite")
	require.ErrorAs(t, err, &confirmErr)
	err = Authorize(true, riskTargets, false, "yes")
	require.ErrorAs(t, err, &confirmErr)
}

func TestBuildRequest_SourceMode(t *testing.T) {
	req := BuildRequest("a1b2c3d4", ModeSource, nil, []string{"/data/a"}, false, "")

	assert.Equal(t, "a1b2c3d4", req.SnapshotID)
	assert.Equal(t, "/", req.Target)
	assert.Equal(t, []string{"/data/a"}, req.Includes)
	assert.False(t, req.DryRun)
}

func TestBuildRequest_StagingMode(t *testing.T) {
	req := BuildRequest("a1b2c3d4", ModeStaging, nil, nil, true, "/restore")

	assert.Equal(t, "/restore", req.Target)
	assert.Empty(t, req.Includes)
	assert.True(t, req.DryRun)

	req = BuildRequest("a1b2c3d4", ModeStaging, nil, nil, false, "")
	assert.Equal(t, DefaultStagingRoot, req.Target)
}
