// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

func original() types.Evaluation {
	return types.Evaluation{
		Major:       []string{"sample too small"},
		Minor:       []string{},
		Other:       []string{},
		Suggestions: []string{"add a power analysis"},
	}
}

func TestAwaitEditedBeforeTimeout(t *testing.T) {
	c := New(nil)
	edited := types.Evaluation{Major: []string{"rewritten"}, Minor: []string{"new"}, Other: []string{}, Suggestions: []string{}}

	res := c.Await(original(), time.Minute, func(published types.Evaluation) {
		assert.Equal(t, original(), published)
		assert.Equal(t, AwaitingApproval, c.Phase())
		go func() {
			time.Sleep(10 * time.Millisecond)
			require.NoError(t, c.Resolve(&edited))
		}()
	})

	assert.Equal(t, Edited, res.Outcome)
	assert.Equal(t, edited, res.Evaluation)
	assert.Equal(t, Resolved, c.Phase())
	assert.Less(t, res.Waited, time.Minute)
}

func TestAwaitApprovedUnchanged(t *testing.T) {
	c := New(nil)
	res := c.Await(original(), time.Minute, func(types.Evaluation) {
		require.NoError(t, c.Resolve(nil))
	})
	assert.Equal(t, Approved, res.Outcome)
	assert.Equal(t, original(), res.Evaluation)
}

func TestAwaitTimeoutUsesOriginal(t *testing.T) {
	c := New(nil)
	var published bool
	res := c.Await(original(), 20*time.Millisecond, func(types.Evaluation) { published = true })

	assert.True(t, published)
	assert.Equal(t, TimedOut, res.Outcome)
	assert.Equal(t, original(), res.Evaluation)
	assert.GreaterOrEqual(t, res.Waited, 20*time.Millisecond)

	assert.ErrorIs(t, c.Resolve(nil), ErrNotAwaiting, "a late resolve must not be accepted")
}

func TestCancelReleasesWait(t *testing.T) {
	c := New(nil)
	done := make(chan Resolution)
	go func() {
		done <- c.Await(original(), time.Hour, nil)
	}()

	require.Eventually(t, func() bool { return c.Phase() == AwaitingApproval }, time.Second, time.Millisecond)
	c.Cancel()

	select {
	case res := <-done:
		assert.Equal(t, Cancelled, res.Outcome)
		assert.Equal(t, original(), res.Evaluation)
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel did not release the wait")
	}
}

func TestAwaitAfterCancelReturnsImmediately(t *testing.T) {
	c := New(nil)
	c.Cancel()

	called := false
	res := c.Await(original(), time.Hour, func(types.Evaluation) { called = true })
	assert.Equal(t, Cancelled, res.Outcome)
	assert.False(t, called, "a cancelled gate must not publish")
}

func TestResolveWhenIdle(t *testing.T) {
	c := New(nil)
	assert.ErrorIs(t, c.Resolve(nil), ErrNotAwaiting)
	assert.Equal(t, Idle, c.Phase())
}

func TestResolveOnlyOnce(t *testing.T) {
	c := New(nil)
	var second error
	res := c.Await(original(), time.Minute, func(types.Evaluation) {
		require.NoError(t, c.Resolve(nil))
		second = c.Resolve(&types.Evaluation{Major: []string{"late"}})
	})
	assert.ErrorIs(t, second, ErrNotAwaiting)
	assert.Equal(t, Approved, res.Outcome)
}

func TestEditIsCopied(t *testing.T) {
	c := New(nil)
	edited := types.Evaluation{Major: []string{"a"}, Minor: []string{}, Other: []string{}, Suggestions: []string{}}
	res := c.Await(original(), time.Minute, func(types.Evaluation) {
		require.NoError(t, c.Resolve(&edited))
		edited.Major[0] = "mutated after resolve"
	})
	assert.Equal(t, []string{"a"}, res.Evaluation.Major)
}

func TestConcurrentResolversOneWins(t *testing.T) {
	c := New(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	res := c.Await(original(), time.Minute, func(types.Evaluation) {
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if c.Resolve(nil) == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
	})
	wg.Wait()

	assert.Equal(t, Approved, res.Outcome)
	assert.Equal(t, 1, accepted)
}
