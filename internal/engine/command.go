package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/transport"
)

// invocation is one fully resolved process spawn: the local argv after
// route wrapping, extra environment for locally executed tools, and a
// stdin payload carrying secret values for remote routes.
type invocation struct {
	argv  []string
	env   map[string]string
	stdin string
}

// buildInvocation turns a planned operation plus resolved secrets into
// the argv actually spawned on this host. SSH routes carry the tool
// invocation as a single shell-quoted remote command argument.
func buildInvocation(op domain.Operation, secrets map[string]string, runtime string) (invocation, error) {
	env := make(map[string]string, len(op.EnvNames))
	for _, name := range op.EnvNames {
		if v, ok := secrets[name]; ok {
			env[name] = v
		}
	}

	switch op.Route.Kind {
	case domain.RouteLocal, domain.RouteLocalRemoteArg:
		argv := append([]string{op.Binary}, op.Args...)
		return invocation{argv: argv, env: env}, nil

	case domain.RouteSSH:
		remote := append([]string{op.Binary}, op.Args...)
		cmd, stdin := remoteCommand(env, remote)
		return invocation{argv: sshArgv(op.Route, cmd), stdin: stdin}, nil

	case domain.RouteSSHContainer:
		if op.Route.Image == "" {
			return invocation{}, &domain.ConstructionError{
				Reason: domain.ReasonMissingField,
				Field:  "container_image",
				Detail: "container route without an image",
			}
		}
		if runtime == "" {
			runtime = "docker"
		}
		remote := []string{runtime, "run", "--rm"}
		// Bare -e inherits the value from the remote shell environment,
		// populated from stdin by remoteCommand.
		for _, name := range sortedKeys(env) {
			remote = append(remote, "-e", name)
		}
		remote = append(remote, op.Route.Image, op.Binary)
		remote = append(remote, op.Args...)
		cmd, stdin := remoteCommand(env, remote)
		return invocation{argv: sshArgv(op.Route, cmd), stdin: stdin}, nil

	default:
		return invocation{}, &domain.CapabilityError{
			Reason: domain.ReasonUnsupportedRoute,
			Detail: fmt.Sprintf("unknown route kind %q", op.Route.Kind),
		}
	}
}

func sshArgv(route domain.Route, remote string) []string {
	argv := []string{"ssh", "-o", "BatchMode=yes"}
	if route.Port > 0 {
		argv = append(argv, "-p", fmt.Sprint(route.Port))
	}
	host := route.Host
	if route.User != "" {
		host = route.User + "@" + route.Host
	}
	return append(argv, host, remote)
}

// remoteCommand renders the remote side of an SSH invocation. Secret
// values travel on stdin, one per line in sorted name order, and the
// remote shell reads them into its environment before exec. They never
// appear in a process listing on either host.
func remoteCommand(env map[string]string, argv []string) (cmd, stdin string) {
	words := transport.JoinArgs(argv)
	if len(env) == 0 {
		return words, ""
	}
	var b, in strings.Builder
	for _, name := range sortedKeys(env) {
		fmt.Fprintf(&b, "IFS= read -r %s; export %s; ", name, name)
		in.WriteString(env[name])
		in.WriteByte('\n')
	}
	b.WriteString("exec ")
	b.WriteString(words)
	return b.String(), in.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
