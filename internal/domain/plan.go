package domain

// OperationKind is the type of one planned external-process invocation.
type OperationKind string

const (
	// OpInit initializes a snapshot repository.
	OpInit OperationKind = "init"
	// OpBackup transfers data to the destination.
	OpBackup OperationKind = "backup"
	// OpMaintenance prunes and verifies a repository.
	OpMaintenance OperationKind = "maintenance"
	// OpCheck verifies repository integrity.
	OpCheck OperationKind = "check"
	// OpRestore restores data from a snapshot.
	OpRestore OperationKind = "restore"
)

// String returns the string representation of the operation kind.
func (k OperationKind) String() string {
	return string(k)
}

// RouteKind describes where and how an operation executes.
type RouteKind string

const (
	// RouteLocal runs the tool on this host with local arguments only.
	RouteLocal RouteKind = "local"
	// RouteLocalRemoteArg runs the tool on this host with one side
	// expressed in the tool's own remote syntax.
	RouteLocalRemoteArg RouteKind = "local-remote-arg"
	// RouteSSH runs the tool on a remote host via ssh.
	RouteSSH RouteKind = "ssh"
	// RouteSSHContainer runs the tool on a remote host inside a container.
	RouteSSHContainer RouteKind = "ssh-container"
)

// Route is the resolved execution locus for an operation. For the SSH
// kinds, Host/User name the remote side and Image optionally names the
// container to run the tool in.
type Route struct {
	Kind  RouteKind
	Host  string
	User  string
	Port  int
	Image string
}

// Remote returns true if the route executes on another host.
func (r Route) Remote() bool {
	return r.Kind == RouteSSH || r.Kind == RouteSSHContainer
}

// Operation is one planned external-process invocation. It is pure data:
// building an Operation never spawns a process, so tests can assert on
// planned argv without executing anything.
type Operation struct {
	Kind OperationKind
	// Binary is the tool to invoke (argv[0]) before any route wrapping.
	Binary string
	Args   []string
	Route  Route
	// EnvNames lists required environment variables by name. Values are
	// resolved from the secrets collaborator at execution time and are
	// never embedded in Args.
	EnvNames []string
	// BestEffort marks operations whose failure does not fail the run.
	BestEffort bool
}

// CommandPlan is the ordered operation sequence for one job run.
// It is built fresh per run and never persisted.
type CommandPlan struct {
	JobName    string
	Operations []Operation
}
