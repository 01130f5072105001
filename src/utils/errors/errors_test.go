//go:build unit

package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsChain(t *testing.T) {
	err := Wrap(io.EOF, "reading envelope")
	assert.True(t, Is(err, io.EOF))
	assert.Contains(t, err.Error(), "reading envelope")
	assert.Contains(t, err.Error(), "errors_test.go")
}

func TestWrapEKeepsBoth(t *testing.T) {
	static := Sentinel("decode failed")
	err := WrapE(static, io.ErrUnexpectedEOF)
	assert.True(t, Is(err, static))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
}

func TestFatalPanicsWithCode(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		inv, ok := r.(*InvariantError)
		require.True(t, ok)
		assert.Equal(t, "T:F:1", inv.Code)
		assert.Contains(t, inv.Error(), "bad thing 7")
	}()
	Fatal("T:F:1", "bad thing %d", 7)
}

func TestUnreachablePanics(t *testing.T) {
	assert.Panics(t, func() { Unreachable("T:U:1", 42) })
}
