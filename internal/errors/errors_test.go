package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, ""},
		{InvalidArguments("missing %s", "path"), CodeInvalidArguments},
		{&PathEscapeError{Path: "../x", Resolved: "/x"}, CodePathEscape},
		{fmt.Errorf("wrapped: %w", &TypeNotFoundError{Name: "Foo"}), CodeTypeNotFound},
		{&RangeError{Path: "a.cs", StartLine: 3, EndLine: 9, Reason: "crosses member boundary"}, CodeRange},
		{NewWriteFailure("a.cs", "a.cs.bak", true, fs.ErrPermission), CodeWriteFailure},
		{NewIndexError("ws", "no root exists", nil), CodeIndex},
		{NewProtocolError("tools/call", "session not initialized"), CodeProtocol},
		{stderrors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CodeOf(tc.err), "%v", tc.err)
	}
}

func TestWriteFailureUnwrap(t *testing.T) {
	err := NewWriteFailure("/w/a.cs", "/b/a.cs.bak", true, fs.ErrPermission)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Contains(t, err.Error(), "original restored")

	err = NewWriteFailure("/w/a.cs", "", false, fs.ErrPermission)
	assert.Contains(t, err.Error(), "no backup taken")
}

func TestSuggestions(t *testing.T) {
	err := NotFound("method %q not found", "Sav").WithSuggestions([]string{"Save"})
	assert.Equal(t, []string{"Save"}, SuggestionsOf(err))
	assert.Contains(t, err.Error(), "did you mean: Save")

	typeErr := &TypeNotFoundError{Name: "Usr", Suggestions: []string{"User"}}
	assert.Equal(t, []string{"User"}, SuggestionsOf(typeErr))
	assert.Nil(t, SuggestionsOf(stderrors.New("plain")))
}
