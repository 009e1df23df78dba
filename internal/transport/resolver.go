// Package transport decides where and how a provider tool executes for a
// given source/destination endpoint combination.
package transport

import (
	"context"
	"fmt"

	"github.com/ja2ui0/highball/internal/domain"
)

// OpClass splits operations by their transport needs. Read-only
// introspection always runs a local tool instance; only mutating
// operations are candidates for remote wrapping.
type OpClass string

const (
	// ClassMutating covers init, backup, maintenance and restore.
	ClassMutating OpClass = "mutating"
	// ClassReadOnly covers snapshot listing and content introspection.
	ClassReadOnly OpClass = "readonly"
)

// ContainerPolicy decides whether a remote mutating invocation is
// wrapped in a container run. The rule was still evolving in the
// original system, so it is an explicit overridable table rather than a
// hardcoded branch.
type ContainerPolicy struct {
	// Force wraps every remote mutating invocation, failing when no
	// image is configured.
	Force bool
	// Never runs the bare remote binary even when an image is set.
	Never bool
}

// wrap reports whether to containerize given the job's configured image.
func (p ContainerPolicy) wrap(image string) (bool, error) {
	if p.Never {
		return false, nil
	}
	if p.Force {
		if image == "" {
			return false, &domain.ConstructionError{
				Reason: domain.ReasonMissingField,
				Field:  "container_image",
				Detail: "container execution is forced but no image is configured",
			}
		}
		return true, nil
	}
	// Default: container when the job names an image, bare binary otherwise.
	return image != "", nil
}

// Resolver maps (source, destination, provider, class) to a Route and
// verifies the route's capabilities before any operation is built.
type Resolver struct {
	checker CapabilityChecker
	policy  ContainerPolicy
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithChecker sets the capability checker.
func WithChecker(c CapabilityChecker) ResolverOption {
	return func(r *Resolver) {
		r.checker = c
	}
}

// WithContainerPolicy overrides the container-wrapping policy.
func WithContainerPolicy(p ContainerPolicy) ResolverOption {
	return func(r *Resolver) {
		r.policy = p
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		checker: NewExecChecker(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the execution route for a job's operation class. The
// result is a pure function of (source kind, destination kind, provider,
// class, container policy); no process is spawned.
func (r *Resolver) Resolve(job domain.Job, class OpClass) (domain.Route, error) {
	switch job.Provider {
	case domain.ProviderRsync:
		return r.resolveRsync(job)
	case domain.ProviderRestic:
		return r.resolveRestic(job, class)
	default:
		return domain.Route{}, &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "provider",
			Detail: fmt.Sprintf("unknown provider %q", job.Provider),
		}
	}
}

func (r *Resolver) resolveRsync(job domain.Job) (domain.Route, error) {
	src, dst := job.Source, job.Dest

	switch {
	case !src.IsRemote() && !dst.IsRemote():
		return domain.Route{Kind: domain.RouteLocal}, nil

	case src.IsRemote() != dst.IsRemote():
		// One side remote: rsync runs here with that side in its own
		// remote syntax (user@host:path or rsync://).
		return domain.Route{Kind: domain.RouteLocalRemoteArg}, nil

	default:
		// Both remote: rsync cannot take two remote arguments. Execute
		// on the source host with the destination in daemon syntax.
		if src.Kind != domain.EndpointSSH {
			return domain.Route{}, &domain.CapabilityError{
				Reason: domain.ReasonUnsupportedRoute,
				Detail: "both endpoints remote requires an SSH-reachable source host",
			}
		}
		if dst.Kind != domain.EndpointDaemon {
			return domain.Route{}, &domain.CapabilityError{
				Reason: domain.ReasonUnsupportedRoute,
				Detail: "both endpoints remote requires an rsync-daemon destination",
			}
		}
		return domain.Route{
			Kind: domain.RouteSSH,
			Host: src.Host,
			User: src.User,
			Port: src.Port,
		}, nil
	}
}

func (r *Resolver) resolveRestic(job domain.Job, class OpClass) (domain.Route, error) {
	// Introspection always runs a local restic instance. Repository
	// access itself may still be network-based (REST, S3); that is
	// independent of execution locality.
	if class == ClassReadOnly {
		return domain.Route{Kind: domain.RouteLocal}, nil
	}

	src := job.Source
	if !src.IsRemote() {
		return domain.Route{Kind: domain.RouteLocal}, nil
	}
	if src.Kind != domain.EndpointSSH {
		return domain.Route{}, &domain.CapabilityError{
			Reason: domain.ReasonUnsupportedRoute,
			Detail: fmt.Sprintf("restic source endpoint kind %q is not reachable for execution", src.Kind),
		}
	}

	wrap, err := r.policy.wrap(job.Restic.ContainerImage)
	if err != nil {
		return domain.Route{}, err
	}
	route := domain.Route{
		Kind: domain.RouteSSH,
		Host: src.Host,
		User: src.User,
		Port: src.Port,
	}
	if wrap {
		route.Kind = domain.RouteSSHContainer
		route.Image = job.Restic.ContainerImage
	}
	return route, nil
}

// Check verifies that the binaries and hosts a route depends on are
// actually available. It returns a *domain.CapabilityError before any
// process in the plan is spawned.
func (r *Resolver) Check(ctx context.Context, route domain.Route, binary string) error {
	switch route.Kind {
	case domain.RouteLocal, domain.RouteLocalRemoteArg:
		return r.checker.LocalBinary(ctx, binary)

	case domain.RouteSSH:
		if err := r.checker.LocalBinary(ctx, "ssh"); err != nil {
			return err
		}
		host := domain.Endpoint{Kind: domain.EndpointSSH, Host: route.Host, User: route.User, Port: route.Port}
		return r.checker.RemoteBinary(ctx, host, binary)

	case domain.RouteSSHContainer:
		if err := r.checker.LocalBinary(ctx, "ssh"); err != nil {
			return err
		}
		host := domain.Endpoint{Kind: domain.EndpointSSH, Host: route.Host, User: route.User, Port: route.Port}
		return r.checker.RemoteRuntime(ctx, host)

	default:
		return &domain.CapabilityError{
			Reason: domain.ReasonUnsupportedRoute,
			Detail: fmt.Sprintf("unknown route kind %q", route.Kind),
		}
	}
}
