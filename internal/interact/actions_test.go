// File: internal/interact/actions_test.go
package interact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFirstVisible(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstSelectorWinsWithoutProbingLater", func(t *testing.T) {
		d := newFakeDriver()
		d.visible["#primary"] = true
		d.visible[".fallback"] = true

		a := testActions(d)
		selector, err := a.FindFirstVisible(ctx, ElementQuery{"#primary", ".fallback"}, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "#primary", selector)
		// Order is significant: a resolved match must stop the probe sequence.
		assert.Equal(t, []string{"#primary"}, d.findOrder)
	})

	t.Run("FallsBackInOrder", func(t *testing.T) {
		d := newFakeDriver()
		d.visible[".fallback"] = true

		a := testActions(d)
		selector, err := a.FindFirstVisible(ctx, ElementQuery{"#primary", ".fallback"}, time.Second)
		require.NoError(t, err)
		assert.Equal(t, ".fallback", selector)
		assert.Equal(t, []string{"#primary", ".fallback"}, d.findOrder)
	})

	t.Run("ExhaustionListsAllAttempted", func(t *testing.T) {
		d := newFakeDriver()
		a := testActions(d)

		_, err := a.FindFirstVisible(ctx, ElementQuery{"#a", "#b", "#c"}, time.Second)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, []string{"#a", "#b", "#c"}, notFound.Tried)
	})

	t.Run("EmptyQueryIsProgrammerError", func(t *testing.T) {
		a := testActions(newFakeDriver())
		_, err := a.FindFirstVisible(ctx, nil, time.Second)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})
}

func TestClickWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("AllSelectorsFailingPerformsExactlyRPasses", func(t *testing.T) {
		d := newFakeDriver()
		a := testActions(d)

		outcome := a.ClickWithRetry(ctx, ElementQuery{"#a", "#b"}, 3, 3*time.Second)
		assert.False(t, outcome.Success)
		assert.Equal(t, 3, outcome.Attempts)
		assert.NotEmpty(t, outcome.LastError)
		// 3 full passes over 2 selectors.
		assert.Len(t, d.findOrder, 6)
		assert.Empty(t, d.clicks)
	})

	t.Run("SuccessOnKthPassReportsAttempts", func(t *testing.T) {
		d := newFakeDriver()
		d.visibleAfterProbes["#target"] = 2

		a := testActions(d)
		outcome := a.ClickWithRetry(ctx, ElementQuery{"#target"}, 3, 3*time.Second)
		assert.True(t, outcome.Success)
		assert.Equal(t, 2, outcome.Attempts)
		assert.Equal(t, []string{"#target"}, d.clicks)
	})

	t.Run("ClickFaultCountsAsFailedPass", func(t *testing.T) {
		d := newFakeDriver()
		d.visible["#target"] = true
		d.clickErr["#target"] = errors.New("node detached")

		a := testActions(d)
		outcome := a.ClickWithRetry(ctx, ElementQuery{"#target"}, 2, 2*time.Second)
		assert.False(t, outcome.Success)
		assert.Equal(t, 2, outcome.Attempts)
		assert.Contains(t, outcome.LastError, "node detached")
	})

	t.Run("EmptyQueryNeverClicks", func(t *testing.T) {
		a := testActions(newFakeDriver())
		outcome := a.ClickWithRetry(ctx, nil, 3, time.Second)
		assert.False(t, outcome.Success)
		assert.Equal(t, 0, outcome.Attempts)
	})

	t.Run("CanceledContextStopsPasses", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		a := testActions(newFakeDriver())
		outcome := a.ClickWithRetry(canceled, ElementQuery{"#a"}, 3, time.Second)
		assert.False(t, outcome.Success)
	})
}

func TestTypeInto(t *testing.T) {
	ctx := context.Background()

	t.Run("TypesKeystrokeByKeystroke", func(t *testing.T) {
		d := newFakeDriver()
		d.visible["#search"] = true

		a := testActions(d)
		outcome := a.TypeInto(ctx, ElementQuery{"#search"}, "abc", TypeOptions{KeyDelay: time.Millisecond})
		require.True(t, outcome.Success)
		assert.Equal(t, []string{"#search:a", "#search:b", "#search:c"}, d.typed)
		assert.Empty(t, d.cleared)
		assert.Empty(t, d.entered)
	})

	t.Run("ClearFirstAndEnter", func(t *testing.T) {
		d := newFakeDriver()
		d.visible["#search"] = true

		a := testActions(d)
		outcome := a.TypeInto(ctx, ElementQuery{"#search"}, "x", TypeOptions{
			ClearFirst: true,
			PressEnter: true,
			KeyDelay:   time.Millisecond,
		})
		require.True(t, outcome.Success)
		assert.Equal(t, []string{"#search"}, d.cleared)
		assert.Equal(t, []string{"#search"}, d.entered)
	})

	t.Run("MissingTargetIsAnOutcomeNotAFault", func(t *testing.T) {
		a := testActions(newFakeDriver())
		outcome := a.TypeInto(ctx, ElementQuery{"#gone"}, "x", TypeOptions{Timeout: 50 * time.Millisecond})
		assert.False(t, outcome.Success)
		assert.Contains(t, outcome.LastError, "#gone")
	})
}

func TestElementExists(t *testing.T) {
	ctx := context.Background()

	d := newFakeDriver()
	d.visible["#modal"] = true
	a := testActions(d)

	assert.True(t, a.ElementExists(ctx, ElementQuery{"#modal"}, 50*time.Millisecond))
	assert.False(t, a.ElementExists(ctx, ElementQuery{"#absent"}, 50*time.Millisecond))
	assert.False(t, a.ElementExists(ctx, nil, 50*time.Millisecond))
}
