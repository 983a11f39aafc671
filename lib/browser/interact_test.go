package browser

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsStale(t *testing.T) {
	require.True(t, IsStale(fmt.Errorf("Stale Element Reference: element is not attached")))
	require.True(t, IsStale(fmt.Errorf("could not find node with given id")))
	require.False(t, IsStale(fmt.Errorf("timeout waiting for selector")))
	require.False(t, IsStale(nil))
}

func TestAttemptStopsAtFirstSuccess(t *testing.T) {
	ctx := context.Background()

	var calls []string
	err := Attempt(ctx, nil,
		Strategy{"first", func(context.Context) error {
			calls = append(calls, "first")
			return fmt.Errorf("nope")
		}},
		Strategy{"second", func(context.Context) error {
			calls = append(calls, "second")
			return nil
		}},
		Strategy{"third", func(context.Context) error {
			calls = append(calls, "third")
			return nil
		}},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestAttemptVerifyRejectsStrategy(t *testing.T) {
	ctx := context.Background()

	verified := false
	err := Attempt(ctx,
		func(context.Context) error {
			if !verified {
				return fmt.Errorf("not yet")
			}
			return nil
		},
		Strategy{"lies", func(context.Context) error {
			// claims success but verification disagrees
			return nil
		}},
		Strategy{"works", func(context.Context) error {
			verified = true
			return nil
		}},
	)
	require.NoError(t, err)
}

func TestAttemptExhausted(t *testing.T) {
	ctx := context.Background()

	err := Attempt(ctx, nil,
		Strategy{"a", func(context.Context) error { return fmt.Errorf("fail a") }},
		Strategy{"b", func(context.Context) error { return fmt.Errorf("fail b") }},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fail a")
	require.Contains(t, err.Error(), "fail b")
}
