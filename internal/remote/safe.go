package remote

import "log"

// Safe invokes op and returns its value, or fallback if op fails for
// any reason. The failure is logged and never propagates; this is the
// single error boundary between remote I/O and the rest of the engine.
func Safe[T any](name string, op func() (T, error), fallback T) T {
	v, err := op()
	if err != nil {
		log.Printf("[WARN] remote %s failed, using fallback: %v", name, err)
		return fallback
	}
	return v
}

// SafeOK wraps a write-style operation, reporting whether it settled
// remotely. A false return means the local state is ahead of the
// remote replica.
func SafeOK(name string, op func() error) bool {
	return Safe(name, func() (bool, error) { return true, op() }, false)
}
