package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja2ui0/highball/internal/domain"
)

func TestClaims_AcquireAndRelease(t *testing.T) {
	c := NewClaims()

	require.NoError(t, c.Acquire("photos", []string{"/srv/repo", "nas.local:/backup"}))
	assert.Equal(t, 2, c.Held())

	owner, ok := c.Holder("/srv/repo")
	require.True(t, ok)
	assert.Equal(t, "photos", owner)

	c.Release("photos")
	assert.Equal(t, 0, c.Held())
}

func TestClaims_ConflictDefersWithoutPartialClaim(t *testing.T) {
	c := NewClaims()
	require.NoError(t, c.Acquire("photos", []string{"/srv/repo"}))

	err := c.Acquire("documents", []string{"/other/repo", "/srv/repo"})
	require.ErrorIs(t, err, domain.ErrConflictDeferred)

	// All-or-nothing: the free resource must not have been claimed.
	_, held := c.Holder("/other/repo")
	assert.False(t, held)
	assert.Equal(t, 1, c.Held())
}

func TestClaims_ReacquireBySameJob(t *testing.T) {
	c := NewClaims()
	require.NoError(t, c.Acquire("photos", []string{"/srv/repo"}))
	require.NoError(t, c.Acquire("photos", []string{"/srv/repo"}))
	assert.Equal(t, 1, c.Held())
}

func TestClaims_ReleaseIsIdempotent(t *testing.T) {
	c := NewClaims()
	require.NoError(t, c.Acquire("photos", []string{"/srv/repo"}))

	c.Release("photos")
	c.Release("photos")
	assert.Equal(t, 0, c.Held())

	// The resource is free again for other jobs.
	require.NoError(t, c.Acquire("documents", []string{"/srv/repo"}))
}

func TestClaims_ReleaseOnlyOwnClaims(t *testing.T) {
	c := NewClaims()
	require.NoError(t, c.Acquire("photos", []string{"/srv/a"}))
	require.NoError(t, c.Acquire("documents", []string{"/srv/b"}))

	c.Release("photos")

	_, held := c.Holder("/srv/a")
	assert.False(t, held)
	owner, held := c.Holder("/srv/b")
	require.True(t, held)
	assert.Equal(t, "documents", owner)
}
