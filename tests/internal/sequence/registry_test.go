package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAdd(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Add(New("b", 2, noop), New("a", 1, noop), Unordered("z", noop)))

	assert.Equal(t, 3, registry.Len())
	assert.Equal(t, []string{"b", "a", "z"}, names(registry.Cases()))
	assert.Equal(t, []string{"a", "b", "z"}, names(registry.Sorted()))

	testCase, found := registry.Get("a")
	assert.True(t, found)
	assert.Equal(t, 1, *testCase.Order)
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Add(New("a", 1, noop)))

	err := registry.Add(New("a", 2, noop))
	assert.EqualError(t, err, `case "a" is already registered`)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	assert.Error(t, NewRegistry().Add(New("", 1, noop)))
}

func TestRegistryMustAddPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry().MustAdd(New("a", 1, noop), New("a", 1, noop))
	})
}

func TestSessionFlag(t *testing.T) {
	session := NewSession()
	flag := session.Flag("image-repository")

	assert.False(t, flag.IsRaised())
	assert.Empty(t, flag.Owner())
	assert.Same(t, flag, session.Flag("image-repository"))

	require.NoError(t, flag.Raise("list images"))
	assert.True(t, flag.IsRaised())
	assert.Equal(t, "list images", flag.Owner())

	assert.NoError(t, flag.Raise("list images"))
	assert.Error(t, flag.Raise("import images"))
	assert.Equal(t, "list images", flag.Owner())
	assert.Error(t, session.Flag("other").Raise(""))
}

func TestSessionFlagsAreIndependent(t *testing.T) {
	session := NewSession()

	require.NoError(t, session.Flag("one").Raise("owner"))

	assert.False(t, session.Flag("two").IsRaised())
	assert.False(t, NewSession().Flag("one").IsRaised())
}

func TestSessionFlagConcurrentRaise(t *testing.T) {
	flag := NewSession().Flag("race")

	var (
		waitGroup sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for _, owner := range []string{"a", "b", "c", "d"} {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			if flag.Raise(owner) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}

	waitGroup.Wait()

	assert.Equal(t, 1, succeeded)
	assert.True(t, flag.IsRaised())
}
