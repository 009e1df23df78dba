package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja2ui0/highball/internal/domain"
)

func TestBuildInvocation_LocalRoute(t *testing.T) {
	op := domain.Operation{
		Binary:   "restic",
		Args:     []string{"-r", "/srv/repo", "backup", "/data"},
		Route:    domain.Route{Kind: domain.RouteLocal},
		EnvNames: []string{"RESTIC_PASSWORD"},
	}
	secrets := map[string]string{"RESTIC_PASSWORD": "hunter2", "UNRELATED": "x"}

	inv, err := buildInvocation(op, secrets, "docker")
	require.NoError(t, err)

	assert.Equal(t, []string{"restic", "-r", "/srv/repo", "backup", "/data"}, inv.argv)
	// Only the operation's named env vars are injected.
	assert.Equal(t, map[string]string{"RESTIC_PASSWORD": "hunter2"}, inv.env)
}

func TestBuildInvocation_SSHRoute(t *testing.T) {
	op := domain.Operation{
		Binary:   "restic",
		Args:     []string{"-r", "/srv/repo", "backup", "/data"},
		Route:    domain.Route{Kind: domain.RouteSSH, Host: "src.local", User: "backup", Port: 2222},
		EnvNames: []string{"RESTIC_PASSWORD"},
	}
	secrets := map[string]string{"RESTIC_PASSWORD": "hunter2"}

	inv, err := buildInvocation(op, secrets, "docker")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ssh", "-o", "BatchMode=yes", "-p", "2222", "backup@src.local",
		"IFS= read -r RESTIC_PASSWORD; export RESTIC_PASSWORD; exec restic -r /srv/repo backup /data",
	}, inv.argv)
	// Secret values travel on stdin, never in argv or the local env.
	assert.Equal(t, "hunter2\n", inv.stdin)
	assert.Empty(t, inv.env)
}

func TestBuildInvocation_SSHRouteKeepsSecretsOutOfArgv(t *testing.T) {
	op := domain.Operation{
		Binary:   "restic",
		Args:     []string{"-r", "/srv/repo", "backup", "/data"},
		Route:    domain.Route{Kind: domain.RouteSSH, Host: "src.local"},
		EnvNames: []string{"RESTIC_PASSWORD"},
	}
	secrets := map[string]string{"RESTIC_PASSWORD": "hunter2"}

	inv, err := buildInvocation(op, secrets, "")
	require.NoError(t, err)

	// A process listing shows argv; the value must not be in it.
	for _, arg := range inv.argv {
		assert.NotContains(t, arg, "hunter2")
	}
	assert.Contains(t, inv.stdin, "hunter2")
}

func TestBuildInvocation_SSHRouteQuotesArgs(t *testing.T) {
	op := domain.Operation{
		Binary: "rsync",
		Args:   []string{"-a", "/home/my user/photos", "/backup/photos"},
		Route:  domain.Route{Kind: domain.RouteSSH, Host: "src.local"},
	}

	inv, err := buildInvocation(op, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "rsync -a '/home/my user/photos' /backup/photos", inv.argv[len(inv.argv)-1])
}

func TestBuildInvocation_ContainerRoute(t *testing.T) {
	op := domain.Operation{
		Binary: "restic",
		Args:   []string{"-r", "/srv/repo", "backup", "/data"},
		Route: domain.Route{
			Kind:  domain.RouteSSHContainer,
			Host:  "src.local",
			User:  "backup",
			Image: "restic/restic:latest",
		},
		EnvNames: []string{"RESTIC_PASSWORD"},
	}
	secrets := map[string]string{"RESTIC_PASSWORD": "hunter2"}

	inv, err := buildInvocation(op, secrets, "podman")
	require.NoError(t, err)

	remote := inv.argv[len(inv.argv)-1]
	assert.Equal(t,
		"IFS= read -r RESTIC_PASSWORD; export RESTIC_PASSWORD; "+
			"exec podman run --rm -e RESTIC_PASSWORD restic/restic:latest restic -r /srv/repo backup /data",
		remote)
	assert.Equal(t, "hunter2\n", inv.stdin)
}

func TestBuildInvocation_ContainerRouteDefaultsToDocker(t *testing.T) {
	op := domain.Operation{
		Binary: "restic",
		Args:   []string{"version"},
		Route:  domain.Route{Kind: domain.RouteSSHContainer, Host: "src.local", Image: "restic/restic:latest"},
	}

	inv, err := buildInvocation(op, nil, "")
	require.NoError(t, err)
	assert.Contains(t, inv.argv[len(inv.argv)-1], "docker run --rm")
}

func TestBuildInvocation_ContainerRouteWithoutImage(t *testing.T) {
	op := domain.Operation{
		Binary: "restic",
		Route:  domain.Route{Kind: domain.RouteSSHContainer, Host: "src.local"},
	}

	_, err := buildInvocation(op, nil, "docker")
	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
	assert.Equal(t, "container_image", consErr.Field)
}

func TestBuildInvocation_StableEnvOrder(t *testing.T) {
	op := domain.Operation{
		Binary:   "restic",
		Args:     []string{"version"},
		Route:    domain.Route{Kind: domain.RouteSSH, Host: "src.local"},
		EnvNames: []string{"RESTIC_REST_USERNAME", "RESTIC_PASSWORD", "RESTIC_REST_PASSWORD"},
	}
	secrets := map[string]string{
		"RESTIC_REST_USERNAME": "u",
		"RESTIC_PASSWORD":      "p",
		"RESTIC_REST_PASSWORD": "rp",
	}

	inv, err := buildInvocation(op, secrets, "")
	require.NoError(t, err)
	assert.Equal(t,
		"IFS= read -r RESTIC_PASSWORD; export RESTIC_PASSWORD; "+
			"IFS= read -r RESTIC_REST_PASSWORD; export RESTIC_REST_PASSWORD; "+
			"IFS= read -r RESTIC_REST_USERNAME; export RESTIC_REST_USERNAME; "+
			"exec restic version",
		inv.argv[len(inv.argv)-1])
	// stdin lines follow the same sorted name order.
	assert.Equal(t, "p\nrp\nu\n", inv.stdin)
}
