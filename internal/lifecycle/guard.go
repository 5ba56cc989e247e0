package lifecycle

import (
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

// AcquireGuard sets the reentrancy flag and returns a release function
// clearing it. Call sites defer the release immediately so the flag is
// cleared on every exit path, success or error:
//
//	release, err := machine.AcquireGuard()
//	if err != nil {
//		return err
//	}
//	defer release()
//
// Re-entering while the flag is set fails with REENTRANCY_DETECTED and
// performs no mutation. The flag lives in Instance storage and is never
// left set across invocations.
func (m *Machine) AcquireGuard() (func(), error) {
	key := storage.NewKey(nsGuard)

	v, ok, err := m.env.Store.Get(storage.TierInstance, key)
	if err != nil {
		return nil, err
	}
	if ok {
		if held, _ := val.AsBool(v); held {
			return nil, fault.New(fault.CodeReentrancyDetected, "guarded operation re-entered")
		}
	}

	if err := m.env.Store.Set(storage.TierInstance, key, val.Bool(true)); err != nil {
		return nil, err
	}

	return func() {
		// Remove cannot fail for a key that encoded on the way in.
		_ = m.env.Store.Remove(storage.TierInstance, key)
	}, nil
}

// GuardHeld reports whether the reentrancy flag is currently set.
// Diagnostic read for tests and the CLI.
func (m *Machine) GuardHeld() (bool, error) {
	v, ok, err := m.env.Store.Get(storage.TierInstance, storage.NewKey(nsGuard))
	if err != nil || !ok {
		return false, err
	}
	held, _ := val.AsBool(v)
	return held, nil
}
