package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrNotFound, "draft abc")
	err = Wrap(err, "get draft")

	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsInvalidChangeError(err))
	assert.Contains(t, err.Error(), "get draft")
	assert.Contains(t, err.Error(), "draft abc")
}

func TestSentinelConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		text  string
	}{
		{"not found", NewNotFoundError("no draft for %s", "doc-1"), IsNotFoundError, "no draft for doc-1"},
		{"invalid request", NewInvalidRequestError("missing %s", "id"), IsInvalidRequestError, "missing id"},
		{"invalid change", NewInvalidChangeError("block %s has no position", "b1"), IsInvalidChangeError, "block b1 has no position"},
		{"conflict", NewConflictError("draft for %s already exists", "doc-2"), IsConflictError, "draft for doc-2 already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, tt.check(tt.err))
			assert.Contains(t, tt.err.Error(), tt.text)
		})
	}
}

func TestSentinelHelpersNil(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsInvalidRequestError(nil))
	assert.False(t, IsInvalidChangeError(nil))
	assert.False(t, IsConflictError(nil))
}

func TestIsDistinguishesSentinels(t *testing.T) {
	err := NewInvalidChangeError("left sibling %q is not a child of %q", "a", "p")

	assert.True(t, Is(err, ErrInvalidChange))
	assert.False(t, Is(err, ErrInvalidRequest))
	assert.False(t, Is(err, ErrNotFound))
}

type gatewayError struct {
	code int
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d", e.code)
}

func TestAs(t *testing.T) {
	wrapped := Wrap(&gatewayError{code: 503}, "update draft")

	var target *gatewayError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, 503, target.code)
}

func TestHintsAndDetailsSurviveWrapping(t *testing.T) {
	err := Wrap(ErrConflict, "create draft")
	err = WithHint(err, "delete the existing draft first")
	err = WithDetail(err, "Document ID: doc-1")
	err = Wrap(err, "rpc")

	assert.True(t, IsConflictError(err))
	assert.Contains(t, GetAllHints(err), "delete the existing draft first")
	assert.Contains(t, GetAllDetails(err), "Document ID: doc-1")
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithStack(nil))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func ExampleWrap() {
	err := Wrap(New("connection refused"), "failed to fetch draft")
	fmt.Println(err)
	// Output: failed to fetch draft: connection refused
}
