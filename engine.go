package scriptbridge

// Callback is the normalized form of a host callback: it receives the
// parameter string the script supplied and returns the value handed back to
// the script. See CallbackMap for the shapes accepted at registration time.
type Callback func(parameter string) (string, error)

// Engine is the opaque script-execution collaborator. One Engine instance is
// exclusively owned by exactly one execution request: the Host constructs it,
// registers the request's callbacks, moves it onto a worker goroutine, runs
// it once and closes it. Implementations need no internal locking.
type Engine interface {
	// RegisterCallback installs a host function invocable from script code
	// under the given name. Called before Run, on the submitting goroutine.
	RegisterCallback(name string, fn Callback) error

	// Run executes the script, then invokes the function named functionName
	// with arguments derived from the opaque parameters string, and returns
	// the stringified result. A non-nil error carries the engine's
	// diagnostic text; it is a normal outcome, not a dispatcher fault.
	Run(functionName, parameters, script string) (string, error)

	// Close releases the engine. Called exactly once, after Run returns,
	// on the goroutine that ran it.
	Close() error
}

// EngineFactory builds one Engine per execution request.
type EngineFactory func() (Engine, error)
