package fault

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := New(CodeInvalidAmount, "amount must be positive, got %d", -5)
	assert.Equal(t, "INVALID_AMOUNT: amount must be positive, got -5", err.Error())
}

func TestError_MessageWithOp(t *testing.T) {
	err := NewOp(CodeUnauthorized, "token.mint", "caller lacks role %q", "minter")
	assert.Equal(t, `UNAUTHORIZED: token.mint: caller lacks role "minter"`, err.Error())
}

func TestCodeOf_Wrapped(t *testing.T) {
	inner := New(CodeInsufficientBalance, "balance 10 < amount 25")
	wrapped := fmt.Errorf("transfer: %w", inner)

	assert.Equal(t, CodeInsufficientBalance, CodeOf(wrapped))
	assert.True(t, IsInsufficientBalance(wrapped))
}

func TestCodeOf_ForeignError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(fmt.Errorf("plain error")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		fn   func(error) bool
		want bool
	}{
		{"unauthorized matches", New(CodeUnauthorized, "nope"), IsUnauthorized, true},
		{"unauthorized mismatch", New(CodeOverflow, "boom"), IsUnauthorized, false},
		{"reentrancy matches", New(CodeReentrancyDetected, "re-entered"), IsReentrancy, true},
		{"paused is lifecycle", New(CodeContractPaused, "paused"), IsLifecycleBlocked, true},
		{"stopped is lifecycle", New(CodeEmergencyStopActive, "stopped"), IsLifecycleBlocked, true},
		{"overflow is not lifecycle", New(CodeOverflow, "boom"), IsLifecycleBlocked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.err))
		})
	}
}
