package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/session"
)

func TestInstructionStatic(t *testing.T) {
	ins := NewInstructionFromText("You plan trips.")
	assert.True(t, ins.IsStatic())

	text, err := ins.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "You plan trips.", text)
}

func TestInstructionFromFunc(t *testing.T) {
	ins := NewInstructionFromFunc(func(rc *core.RunContext) (string, error) {
		dest, _ := rc.GetState("destination")
		return "Focus on " + dest.(string) + ".", nil
	})
	assert.False(t, ins.IsStatic())

	store := session.NewInMemoryStore()
	runCtx, _, _ := newAgentRunContext(t, store, "hi")
	runCtx.SetState("destination", "Porto")

	text, err := ins.Resolve(runCtx)
	require.NoError(t, err)
	assert.Equal(t, "Focus on Porto.", text)
}
