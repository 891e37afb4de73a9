package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameErrorMatchesByCode(t *testing.T) {
	t.Parallel()

	err := withTable(newError(CodeInvalidCallAmount, "brp-1", "call of %d, %d to call", 15, 20), "table-9")
	wrapped := fmt.Errorf("handle action: %w", err)

	assert.ErrorIs(t, wrapped, ErrInvalidCallAmount)
	assert.NotErrorIs(t, wrapped, ErrInvalidRaiseAmount)
	assert.Equal(t, "INVALID_CALL_AMOUNT: call of 15, 20 to call (table table-9)", err.Error())
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsValidation(errors.New("disk full")))
}

func TestPlayerStack(t *testing.T) {
	t.Parallel()

	p := &Player{ID: "p", Stack: 100}
	require.ErrorIs(t, p.Deduct(101), ErrInsufficientStack)
	assert.Equal(t, int64(100), p.Stack)

	require.NoError(t, p.Deduct(100))
	assert.Zero(t, p.Stack)
	require.Error(t, p.Deduct(-1))

	p.Credit(40)
	assert.Equal(t, int64(40), p.Stack)
}
