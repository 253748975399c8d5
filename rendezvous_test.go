package scriptbridge

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// callbackFactory returns a factory whose engines invoke the named callback
// once with the parameters string and return whatever the callback produced.
func callbackFactory(name string) EngineFactory {
	return scriptedFactory(func(e *fakeEngine, _, parameters, _ string) (string, error) {
		fn, ok := e.callbacks[name]
		if !ok {
			return "", errors.New("no such callback: " + name)
		}
		return fn(parameters)
	})
}

func TestCallback_RoundTrip(t *testing.T) {
	h := newTestHost(t, Config{EngineFactory: callbackFactory("double")})

	var invocations atomic.Int32
	var gotParam atomic.Value
	callbacks := CallbackMap{
		"double": func(parameter string) string {
			invocations.Add(1)
			gotParam.Store(parameter)
			return "42"
		},
	}

	completion, outcomes := collectOutcome()
	if err := h.Run("fn", "21", "src", callbacks, completion); err != nil {
		t.Fatalf("Run: %v", err)
	}

	o := waitOutcome(t, outcomes)
	if o.hasError {
		t.Fatalf("unexpected error outcome: %q", o.value)
	}
	if o.value != "42" {
		t.Errorf("value = %q, want %q", o.value, "42")
	}
	if got := invocations.Load(); got != 1 {
		t.Errorf("callback invocations = %d, want exactly 1", got)
	}
	if p, _ := gotParam.Load().(string); p != "21" {
		t.Errorf("callback parameter = %q, want %q", p, "21")
	}
}

func TestCallback_ConfinedToHostLoop(t *testing.T) {
	var workerGID, callbackGID atomic.Uint64
	factory := scriptedFactory(func(e *fakeEngine, _, parameters, _ string) (string, error) {
		workerGID.Store(goroutineID())
		return e.callbacks["whereami"](parameters)
	})
	h := newTestHost(t, Config{EngineFactory: factory})

	callbacks := CallbackMap{
		"whereami": func(string) string {
			callbackGID.Store(goroutineID())
			return "ok"
		},
	}

	completion, outcomes := collectOutcome()
	if err := h.Run("fn", "", "src", callbacks, completion); err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := waitOutcome(t, outcomes)

	if callbackGID.Load() == workerGID.Load() {
		t.Error("callback ran on the worker goroutine")
	}
	if o.gid != callbackGID.Load() {
		t.Error("completion and callback ran on different goroutines; both belong to the host loop")
	}
}

func TestConcurrentRuns_NoCrossDelivery(t *testing.T) {
	// Both engines hold at a barrier until the other is mid-flight, so the
	// two rendezvous exchanges genuinely interleave.
	var barrier sync.WaitGroup
	barrier.Add(2)
	factory := scriptedFactory(func(e *fakeEngine, functionName, _, _ string) (string, error) {
		barrier.Done()
		barrier.Wait()
		return e.callbacks[functionName](functionName)
	})
	h := newTestHost(t, Config{EngineFactory: factory})

	completionA, outcomesA := collectOutcome()
	completionB, outcomesB := collectOutcome()

	if err := h.Run("A", "", "src", CallbackMap{"A": func(string) string { return "A-done" }}, completionA); err != nil {
		t.Fatalf("Run A: %v", err)
	}
	if err := h.Run("B", "", "src", CallbackMap{"B": func(string) string { return "B-done" }}, completionB); err != nil {
		t.Fatalf("Run B: %v", err)
	}

	a := waitOutcome(t, outcomesA)
	b := waitOutcome(t, outcomesB)

	if a.hasError || a.value != "A-done" {
		t.Errorf("A outcome = (%v, %q), want (false, %q)", a.hasError, a.value, "A-done")
	}
	if b.hasError || b.value != "B-done" {
		t.Errorf("B outcome = (%v, %q), want (false, %q)", b.hasError, b.value, "B-done")
	}
}

func TestCallback_SequentialWithinRequest(t *testing.T) {
	// An engine calling two callbacks back to back must see both results in
	// order, one rendezvous at a time.
	factory := scriptedFactory(func(e *fakeEngine, _, _, _ string) (string, error) {
		first, err := e.callbacks["first"]("")
		if err != nil {
			return "", err
		}
		second, err := e.callbacks["second"](first)
		if err != nil {
			return "", err
		}
		return second, nil
	})
	h := newTestHost(t, Config{EngineFactory: factory})

	callbacks := CallbackMap{
		"first":  func(string) string { return "1" },
		"second": func(parameter string) string { return parameter + "2" },
	}

	completion, outcomes := collectOutcome()
	if err := h.Run("fn", "", "src", callbacks, completion); err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := waitOutcome(t, outcomes)
	if o.value != "12" {
		t.Errorf("value = %q, want %q", o.value, "12")
	}
}

func TestCallback_Timeout(t *testing.T) {
	h := newTestHost(t, Config{
		EngineFactory: callbackFactory("slow"),
		CallTimeout:   50 * time.Millisecond,
		OnUnhandled:   func(error) {},
	})

	callbacks := CallbackMap{
		"slow": func(string) (string, error) {
			time.Sleep(300 * time.Millisecond)
			return "too late", nil
		},
	}

	completion, outcomes := collectOutcome()
	if err := h.Run("fn", "", "src", callbacks, completion); err != nil {
		t.Fatalf("Run: %v", err)
	}

	o := waitOutcome(t, outcomes)
	if !o.hasError {
		t.Fatal("expected a timeout failure outcome")
	}
	if !strings.Contains(o.value, "timed out") {
		t.Errorf("value = %q, want a timeout diagnostic", o.value)
	}
}

func TestCallbackError_EscalatesAndWorkerResumesOnTimeout(t *testing.T) {
	var unhandled atomic.Value
	h := newTestHost(t, Config{
		EngineFactory: callbackFactory("failing"),
		CallTimeout:   50 * time.Millisecond,
		OnUnhandled: func(err error) {
			unhandled.Store(err)
		},
	})

	callbacks := CallbackMap{
		"failing": func(string) (string, error) {
			return "", errors.New("host logic broke")
		},
	}

	completion, outcomes := collectOutcome()
	if err := h.Run("fn", "", "src", callbacks, completion); err != nil {
		t.Fatalf("Run: %v", err)
	}

	o := waitOutcome(t, outcomes)
	if !o.hasError {
		t.Fatal("expected a failure outcome after callback error")
	}

	err, _ := unhandled.Load().(error)
	if err == nil || !strings.Contains(err.Error(), `host callback "failing"`) {
		t.Errorf("unhandled = %v, want host callback escalation", err)
	}
}

func TestCallbackPanic_Escalates(t *testing.T) {
	var unhandled atomic.Value
	h := newTestHost(t, Config{
		EngineFactory: callbackFactory("exploding"),
		CallTimeout:   50 * time.Millisecond,
		OnUnhandled: func(err error) {
			unhandled.Store(err)
		},
	})

	callbacks := CallbackMap{
		"exploding": func(string) string {
			panic("kaboom")
		},
	}

	completion, outcomes := collectOutcome()
	if err := h.Run("fn", "", "src", callbacks, completion); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitOutcome(t, outcomes)

	err, _ := unhandled.Load().(error)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("unhandled = %v, want panic escalation", err)
	}
}

func TestRunSync_CallbacksRunInPlace(t *testing.T) {
	h := newTestHost(t, Config{EngineFactory: callbackFactory("double")})

	callerGID := goroutineID()
	var callbackGID atomic.Uint64
	callbacks := CallbackMap{
		"double": func(parameter string) string {
			callbackGID.Store(goroutineID())
			return parameter + parameter
		},
	}

	got, err := h.RunSync("fn", "ab", "src", callbacks)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if got != "abab" {
		t.Errorf("RunSync = %q, want %q", got, "abab")
	}
	if callbackGID.Load() != callerGID {
		t.Error("synchronous callback did not run on the caller's goroutine")
	}
}
