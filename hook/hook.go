// Package hook provides a small try/catch/finally envelope used to guarantee
// that bookkeeping runs no matter how the guarded work ends.
package hook

import "fmt"

// Interface is one guarded unit of work. Try does the work, Catch may translate
// or absorb its error, and Finally always runs last.
type Interface interface {
	Try() error
	Catch(err error) error
	Finally()
}

// Call runs the hook. Finally is invoked even when Try panics; a panic is
// converted into an error rather than unwinding through the caller.
func Call(h Interface) (err error) {
	if h == nil {
		return fmt.Errorf("hook cannot be nil")
	}

	defer h.Finally()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred during hook execution: %v", r)
		}
	}()

	tryErr := h.Try()
	if tryErr != nil {
		err = h.Catch(tryErr)
		return err
	}

	return nil
}
