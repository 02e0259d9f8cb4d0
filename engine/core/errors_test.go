package core

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	pre := NewPreconditionError("add binding", ErrBuilderConsumed)
	env := NewEnvironmentError("create fence", ErrVulkan)

	assert.True(t, IsPrecondition(pre))
	assert.False(t, IsEnvironment(pre))
	assert.True(t, IsEnvironment(env))
	assert.False(t, IsPrecondition(env))

	assert.ErrorIs(t, pre, ErrBuilderConsumed)
	assert.Equal(t, "precondition: add binding: builder already built", pre.Error())

	wrapped := fmt.Errorf("loading scene: %w", env)
	assert.True(t, IsEnvironment(wrapped))
	assert.ErrorIs(t, wrapped, ErrVulkan)

	assert.False(t, IsPrecondition(errors.New("plain")))
}

func TestCheckNeverAborts(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	require.NoError(t, Check(true, "op", "unused"))

	err := Check(false, "draw", "slot %d out of range", 7)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.Contains(t, err.Error(), "slot 7 out of range")
	assert.Contains(t, buf.String(), "slot 7 out of range")
}

func TestCheckLogsPercentVerbatim(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	err := Check(false, "load texture", "no asset %s", "res/100%dark.png")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "res/100%dark.png")
	assert.NotContains(t, buf.String(), "%!d")
}
