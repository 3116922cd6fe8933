package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("view", "conversation not found: %s", "abc")))
	assert.Equal(t, KindInvalidArgument, KindOf(fmt.Errorf("wrapped: %w", InvalidArgument("merge", "need 2 ids"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestIsMatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Unavailable("chatdb.open", errors.New("disk I/O error")))
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestErrorText(t *testing.T) {
	err := NotFound("view", "conversation not found: %s", "abc")
	assert.Equal(t, "view: conversation not found: abc", err.Error())
	assert.Equal(t, "conversation not found: abc", Message(err))

	cause := errors.New("locked")
	u := Unavailable("chatdb.open", cause)
	assert.Equal(t, "chatdb.open: store unavailable: locked", u.Error())
	assert.ErrorIs(t, u, cause)
}
