package scriptbridge

import "fmt"

// CallbackMap is the capability table handed to Run and RunSync: callback
// name to callable. Values may take at most one string parameter and return
// at most a string plus an optional error. The table is validated once,
// before any work is scheduled; invocations never re-validate.
type CallbackMap map[string]any

// CompletionFunc receives an asynchronous execution's outcome on the host
// loop, exactly once per Run call.
type CompletionFunc func(hasError bool, value string)

// normalizeCallbacks validates a callback table and converts every entry to
// the canonical Callback shape. A nil map is a valid empty table.
func normalizeCallbacks(callbacks CallbackMap) (map[string]Callback, error) {
	if len(callbacks) == 0 {
		return nil, nil
	}
	normalized := make(map[string]Callback, len(callbacks))
	for name, value := range callbacks {
		fn, err := normalizeCallback(name, value)
		if err != nil {
			return nil, err
		}
		normalized[name] = fn
	}
	return normalized, nil
}

func normalizeCallback(name string, value any) (Callback, error) {
	switch fn := value.(type) {
	case Callback:
		if fn == nil {
			break
		}
		return fn, nil
	case func(string) (string, error):
		if fn == nil {
			break
		}
		return fn, nil
	case func(string) string:
		if fn == nil {
			break
		}
		return func(parameter string) (string, error) {
			return fn(parameter), nil
		}, nil
	case func() (string, error):
		if fn == nil {
			break
		}
		return func(string) (string, error) {
			return fn()
		}, nil
	case func() string:
		if fn == nil {
			break
		}
		return func(string) (string, error) {
			return fn(), nil
		}, nil
	case func(string):
		if fn == nil {
			break
		}
		return func(parameter string) (string, error) {
			fn(parameter)
			return "", nil
		}, nil
	case func():
		if fn == nil {
			break
		}
		return func(string) (string, error) {
			fn()
			return "", nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %q is %T, want a func taking at most one string and returning at most a string", ErrCallbackDefinition, name, value)
}
