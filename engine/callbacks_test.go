package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackManagerExecutesInOrder(t *testing.T) {
	var order []string
	mk := func(name string) Callback {
		return NewCallback(name, func(context.Context, *CallbackContext) error {
			order = append(order, name)
			return nil
		})
	}

	cm := NewCallbackManager()
	cm.Register(CallbackBeforeAgent, mk("first"))
	cm.Register(CallbackBeforeAgent, mk("second"))
	cm.Register(CallbackAfterAgent, mk("other"))

	require.NoError(t, cm.Execute(context.Background(), CallbackBeforeAgent, &CallbackContext{}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCallbackManagerStopsOnError(t *testing.T) {
	ran := false
	cm := NewCallbackManager()
	cm.Register(CallbackBeforeAgent, NewCallback("failing", func(context.Context, *CallbackContext) error {
		return errors.New("validation failed")
	}))
	cm.Register(CallbackBeforeAgent, NewCallback("after", func(context.Context, *CallbackContext) error {
		ran = true
		return nil
	}))

	err := cm.Execute(context.Background(), CallbackBeforeAgent, &CallbackContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callback failing")
	assert.False(t, ran)
}

func TestCallbackManagerPassesRefusalThrough(t *testing.T) {
	cm := NewCallbackManager()
	cm.Register(CallbackBeforeAgent, NewCallback("guardrail", func(context.Context, *CallbackContext) error {
		return &Refusal{Message: "travel questions only"}
	}))

	err := cm.Execute(context.Background(), CallbackBeforeAgent, &CallbackContext{})
	var refusal *Refusal
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, "travel questions only", refusal.Message)
}

func TestCallbackManagerNoCallbacksRegistered(t *testing.T) {
	cm := NewCallbackManager()
	assert.NoError(t, cm.Execute(context.Background(), CallbackOnError, &CallbackContext{}))
}
