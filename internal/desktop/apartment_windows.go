//go:build windows

package desktop

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-ole/go-ole"
)

const sFalse = 0x00000001

var errApartmentStopped = errors.New("COM apartment stopped")

// apartment owns one OS thread initialised as a single-threaded COM apartment.
// Every COM call for a session runs on it.
type apartment struct {
	calls chan func()
	done  chan struct{}

	mu      sync.Mutex
	stopped bool
}

func startApartment() (*apartment, error) {
	a := &apartment{
		calls: make(chan func()),
		done:  make(chan struct{}),
	}
	ready := make(chan error, 1)
	go a.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return a, nil
}

func (a *apartment) run(ready chan<- error) {
	defer close(a.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			ready <- err
			return
		}
	}
	defer ole.CoUninitialize()

	ready <- nil
	for fn := range a.calls {
		fn()
	}
}

// do runs fn on the apartment thread and waits for it. A panic in fn is
// returned as an error and the apartment keeps serving calls.
func (a *apartment) do(fn func() error) error {
	errc := make(chan error, 1)

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return errApartmentStopped
	}
	a.calls <- func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("COM call panicked: %v", r)
			}
		}()
		errc <- fn()
	}
	a.mu.Unlock()

	return <-errc
}

func (a *apartment) stop() {
	a.mu.Lock()
	if !a.stopped {
		a.stopped = true
		close(a.calls)
	}
	a.mu.Unlock()
	<-a.done
}
