package scriptbridge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// request is one scheduled unit of script-execution work. It is exclusively
// owned by its worker goroutine between submission and the done message; the
// outcome fields are written once by the worker and read by the host loop
// only after the done message establishes a happens-before edge.
type request struct {
	id           string
	engine       Engine
	functionName string
	parameters   string
	script       string
	completion   CompletionFunc
	start        time.Time

	// outcome, write-once by the worker after the engine call returns
	hasError    bool
	returnValue string
}

// Run schedules the script for background execution and returns immediately.
// The completion handler fires exactly once, on the host loop, never
// synchronously inside Run. Engine-reported failure is delivered as
// completion(true, diagnostic); only validation and setup problems are
// returned here, before anything is scheduled.
func (h *Host) Run(functionName, parameters, script string, callbacks CallbackMap, completion CompletionFunc) error {
	if completion == nil {
		return ErrMissingCompletion
	}
	normalized, err := normalizeCallbacks(callbacks)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHostClosed
	}
	h.inflight.Add(1)
	h.mu.Unlock()

	engine, err := h.buildEngine(normalized, true)
	if err != nil {
		h.inflight.Done()
		return err
	}

	req := &request{
		id:           uuid.NewString(),
		engine:       engine,
		functionName: functionName,
		parameters:   parameters,
		script:       script,
		completion:   completion,
		start:        time.Now(),
	}
	executionsInFlight.Inc()
	h.cfg.Logger.Debug("scriptbridge: execution scheduled",
		"request_id", req.id, "function", req.functionName)

	go h.execute(req)
	return nil
}

// RunSync executes the script on the caller's goroutine. Callbacks run in
// place as ordinary calls; no host loop, worker or rendezvous is involved.
// An engine-reported failure returns a *ScriptError carrying the diagnostic.
func (h *Host) RunSync(functionName, parameters, script string, callbacks CallbackMap) (string, error) {
	normalized, err := normalizeCallbacks(callbacks)
	if err != nil {
		return "", err
	}
	engine, err := h.buildEngine(normalized, false)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			h.cfg.Logger.Warn("scriptbridge: closing engine", "error", cerr)
		}
	}()

	value, err := engine.Run(functionName, parameters, script)
	if err != nil {
		return "", &ScriptError{Message: err.Error()}
	}
	return value, nil
}

// buildEngine constructs a per-request engine and installs the callback
// table. For the asynchronous path each callback is wrapped in a rendezvous
// bridge; the synchronous path registers the host functions directly.
func (h *Host) buildEngine(callbacks map[string]Callback, bridged bool) (Engine, error) {
	engine, err := h.cfg.EngineFactory()
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	for name, fn := range callbacks {
		registered := fn
		if bridged {
			registered = h.newCallbackBridge(name, fn)
		}
		if err := engine.RegisterCallback(name, registered); err != nil {
			_ = engine.Close()
			return nil, fmt.Errorf("registering callback %q: %w", name, err)
		}
	}
	return engine, nil
}

// execute runs on the worker goroutine. It owns the request and its engine
// exclusively: it performs the one engine call, writes the outcome, releases
// the engine on every path, and hands the request to the host loop.
func (h *Host) execute(req *request) {
	value, err := req.engine.Run(req.functionName, req.parameters, req.script)
	if err != nil {
		req.hasError = true
		req.returnValue = err.Error()
	} else {
		req.returnValue = value
	}

	if cerr := req.engine.Close(); cerr != nil {
		h.cfg.Logger.Warn("scriptbridge: closing engine",
			"request_id", req.id, "error", cerr)
	}
	req.engine = nil

	h.inbox <- message{done: req}
}

// complete delivers the outcome on the host loop, exactly once per request.
// A panicking completion handler escalates through the unhandled-error
// policy; it is never retried or swallowed.
func (h *Host) complete(req *request) {
	defer h.inflight.Done()

	status := "ok"
	if req.hasError {
		status = "error"
	}
	executionsTotal.WithLabelValues(status).Inc()
	executionDuration.Observe(time.Since(req.start).Seconds())
	executionsInFlight.Dec()
	h.cfg.Logger.Debug("scriptbridge: execution complete",
		"request_id", req.id, "function", req.functionName,
		"has_error", req.hasError, "duration", time.Since(req.start))

	defer func() {
		if r := recover(); r != nil {
			h.escalate(fmt.Errorf("completion handler for request %s: %v", req.id, r))
		}
	}()
	req.completion(req.hasError, req.returnValue)
}
