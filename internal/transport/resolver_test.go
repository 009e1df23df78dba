package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja2ui0/highball/internal/domain"
)

func sshEndpoint(host string) domain.Endpoint {
	return domain.Endpoint{Kind: domain.EndpointSSH, Host: host, User: "backup"}
}

func daemonEndpoint(host string) domain.Endpoint {
	return domain.Endpoint{Kind: domain.EndpointDaemon, Host: host, User: "backup"}
}

func localEndpoint() domain.Endpoint {
	return domain.Endpoint{Kind: domain.EndpointLocal}
}

func TestResolver_Resolve_RsyncBothLocal(t *testing.T) {
	r := NewResolver()
	route, err := r.Resolve(domain.Job{
		Provider: domain.ProviderRsync,
		Source:   localEndpoint(),
		Dest:     localEndpoint(),
	}, ClassMutating)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteLocal, route.Kind)
}

func TestResolver_Resolve_RsyncOneRemote(t *testing.T) {
	r := NewResolver()

	route, err := r.Resolve(domain.Job{
		Provider: domain.ProviderRsync,
		Source:   localEndpoint(),
		Dest:     sshEndpoint("nas.local"),
	}, ClassMutating)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteLocalRemoteArg, route.Kind)

	route, err = r.Resolve(domain.Job{
		Provider: domain.ProviderRsync,
		Source:   daemonEndpoint("nas.local"),
		Dest:     localEndpoint(),
	}, ClassMutating)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteLocalRemoteArg, route.Kind)
}

func TestResolver_Resolve_RsyncBothRemote(t *testing.T) {
	r := NewResolver()

	// SSH source to daemon destination executes on the source host.
	src := sshEndpoint("src.local")
	src.Port = 2222
	route, err := r.Resolve(domain.Job{
		Provider: domain.ProviderRsync,
		Source:   src,
		Dest:     daemonEndpoint("dst.local"),
	}, ClassMutating)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSSH, route.Kind)
	assert.Equal(t, "src.local", route.Host)
	assert.Equal(t, "backup", route.User)
	assert.Equal(t, 2222, route.Port)
}

func TestResolver_Resolve_RsyncBothRemoteUnsupported(t *testing.T) {
	r := NewResolver()

	var capErr *domain.CapabilityError

	// Daemon source cannot host execution.
	_, err := r.Resolve(domain.Job{
		Provider: domain.ProviderRsync,
		Source:   daemonEndpoint("src.local"),
		Dest:     daemonEndpoint("dst.local"),
	}, ClassMutating)
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, domain.ReasonUnsupportedRoute, capErr.Reason)

	// SSH destination cannot be reached from the source host's rsync.
	_, err = r.Resolve(domain.Job{
		Provider: domain.ProviderRsync,
		Source:   sshEndpoint("src.local"),
		Dest:     sshEndpoint("dst.local"),
	}, ClassMutating)
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, domain.ReasonUnsupportedRoute, capErr.Reason)
}

func TestResolver_Resolve_ResticReadOnlyAlwaysLocal(t *testing.T) {
	r := NewResolver()
	job := domain.Job{
		Provider: domain.ProviderRestic,
		Source:   sshEndpoint("src.local"),
		Restic: domain.ResticConfig{
			ContainerImage: "restic/restic:latest",
		},
	}

	route, err := r.Resolve(job, ClassReadOnly)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteLocal, route.Kind)
}

func TestResolver_Resolve_ResticRemoteContainer(t *testing.T) {
	r := NewResolver()
	job := domain.Job{
		Provider: domain.ProviderRestic,
		Source:   sshEndpoint("src.local"),
		Restic: domain.ResticConfig{
			ContainerImage: "restic/restic:latest",
		},
	}

	route, err := r.Resolve(job, ClassMutating)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSSHContainer, route.Kind)
	assert.Equal(t, "restic/restic:latest", route.Image)
	assert.Equal(t, "src.local", route.Host)
}

func TestResolver_Resolve_ResticRemoteBareWithoutImage(t *testing.T) {
	r := NewResolver()
	job := domain.Job{
		Provider: domain.ProviderRestic,
		Source:   sshEndpoint("src.local"),
	}

	route, err := r.Resolve(job, ClassMutating)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSSH, route.Kind)
}

func TestResolver_Resolve_ResticContainerPolicy(t *testing.T) {
	job := domain.Job{
		Provider: domain.ProviderRestic,
		Source:   sshEndpoint("src.local"),
		Restic: domain.ResticConfig{
			ContainerImage: "restic/restic:latest",
		},
	}

	never := NewResolver(WithContainerPolicy(ContainerPolicy{Never: true}))
	route, err := never.Resolve(job, ClassMutating)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSSH, route.Kind)

	force := NewResolver(WithContainerPolicy(ContainerPolicy{Force: true}))
	job.Restic.ContainerImage = ""
	_, err = force.Resolve(job, ClassMutating)
	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
	assert.Equal(t, "container_image", consErr.Field)
}

func TestResolver_Resolve_UnknownProvider(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve(domain.Job{Provider: "tar"}, ClassMutating)

	var consErr *domain.ConstructionError
	require.ErrorAs(t, err, &consErr)
	assert.Equal(t, "provider", consErr.Field)
}

func TestResolver_Check_LocalRoute(t *testing.T) {
	var probed []string
	r := NewResolver(WithChecker(&MockChecker{
		LocalBinaryFunc: func(_ context.Context, name string) error {
			probed = append(probed, name)
			return nil
		},
	}))

	err := r.Check(context.Background(), domain.Route{Kind: domain.RouteLocal}, "rsync")
	require.NoError(t, err)
	assert.Equal(t, []string{"rsync"}, probed)
}

func TestResolver_Check_SSHRouteProbesRemote(t *testing.T) {
	var remoteHost string
	r := NewResolver(WithChecker(&MockChecker{
		RemoteBinaryFunc: func(_ context.Context, host domain.Endpoint, name string) error {
			remoteHost = host.Host
			assert.Equal(t, "restic", name)
			return nil
		},
	}))

	route := domain.Route{Kind: domain.RouteSSH, Host: "src.local", User: "backup"}
	require.NoError(t, r.Check(context.Background(), route, "restic"))
	assert.Equal(t, "src.local", remoteHost)
}

func TestResolver_Check_ContainerRouteProbesRuntime(t *testing.T) {
	runtimeProbed := false
	r := NewResolver(WithChecker(&MockChecker{
		RemoteRuntimeFunc: func(_ context.Context, host domain.Endpoint) error {
			runtimeProbed = true
			return &domain.CapabilityError{
				Reason: domain.ReasonMissingRuntime,
				Detail: "no container runtime on " + host.Host,
			}
		},
	}))

	route := domain.Route{Kind: domain.RouteSSHContainer, Host: "src.local", Image: "restic/restic:latest"}
	err := r.Check(context.Background(), route, "restic")

	var capErr *domain.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, domain.ReasonMissingRuntime, capErr.Reason)
	assert.True(t, runtimeProbed)
}

func TestResolver_Check_MissingLocalSSH(t *testing.T) {
	r := NewResolver(WithChecker(&MockChecker{
		LocalBinaryFunc: func(_ context.Context, name string) error {
			return &domain.CapabilityError{
				Reason: domain.ReasonMissingBinary,
				Detail: name + " not found in PATH",
			}
		},
	}))

	route := domain.Route{Kind: domain.RouteSSH, Host: "src.local"}
	err := r.Check(context.Background(), route, "rsync")

	var capErr *domain.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, domain.ReasonMissingBinary, capErr.Reason)
}
