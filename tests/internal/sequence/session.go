package sequence

import (
	"fmt"
	"sync"
)

// Session holds the flags shared by the cases of a single run. Flags start lowered and are created on first use.
type Session struct {
	mu    sync.Mutex
	flags map[string]*Flag
}

// NewSession returns a Session with every flag lowered.
func NewSession() *Session {
	return &Session{flags: make(map[string]*Flag)}
}

// Flag returns the named flag, creating it lowered if it does not exist yet.
func (session *Session) Flag(name string) *Flag {
	session.mu.Lock()
	defer session.mu.Unlock()

	flag, found := session.flags[name]
	if !found {
		flag = &Flag{name: name}
		session.flags[name] = flag
	}

	return flag
}

// Flag is a boolean that is raised at most once, by a single owner, and only read afterwards.
type Flag struct {
	mu     sync.RWMutex
	name   string
	owner  string
	raised bool
}

// Raise sets the flag on behalf of owner. Raising it again from the same owner is a no-op and raising it from a
// different owner is an error.
func (flag *Flag) Raise(owner string) error {
	if owner == "" {
		return fmt.Errorf("flag %q cannot be raised without an owner", flag.name)
	}

	flag.mu.Lock()
	defer flag.mu.Unlock()

	if flag.raised && flag.owner != owner {
		return fmt.Errorf("flag %q was already raised by %q, %q cannot raise it", flag.name, flag.owner, owner)
	}

	flag.raised = true
	flag.owner = owner

	return nil
}

// IsRaised reports whether the flag has been raised.
func (flag *Flag) IsRaised() bool {
	flag.mu.RLock()
	defer flag.mu.RUnlock()

	return flag.raised
}

// Owner returns the owner that raised the flag or an empty string when it is lowered.
func (flag *Flag) Owner() string {
	flag.mu.RLock()
	defer flag.mu.RUnlock()

	return flag.owner
}

// Name returns the flag name.
func (flag *Flag) Name() string {
	return flag.name
}
