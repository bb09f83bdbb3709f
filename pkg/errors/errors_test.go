package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeParseFailed, "bad article numbering")
	assert.Equal(t, ErrCodeParseFailed, err.Code)
	assert.Equal(t, "[PARSE_001] bad article numbering", err.Error())
}

func TestNewDefaultMessage(t *testing.T) {
	err := New(ErrCodeCacheMiss, "")
	assert.Equal(t, "cache miss", err.Message)
}

func TestErrorWithDetail(t *testing.T) {
	err := New(ErrCodeExternalCallFailed, "span extraction failed").
		WithDetail("document_id=doc-001 span=[120,480)")
	assert.Equal(t, "[LEARN_001] span extraction failed: document_id=doc-001 span=[120,480)", err.Error())
}

func TestWithDetailNilReceiver(t *testing.T) {
	var err *AppError
	assert.Nil(t, err.WithDetail("anything"))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeCacheUnavailable, "redis get failed")

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeCacheUnavailable, err.Code)
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "should vanish"))
}

func TestWrapPreservesCodeOnUnknown(t *testing.T) {
	inner := New(ErrCodeOntologyLoadFailed, "file missing")
	outer := Wrap(inner, ErrCodeUnknown, "startup failed")
	assert.Equal(t, ErrCodeOntologyLoadFailed, outer.Code)
}

func TestIsCodeThroughChain(t *testing.T) {
	inner := New(ErrCodeCacheCorruption, "payload truncated")
	mid := Wrap(inner, ErrCodeCacheError, "chunk cache read")
	outer := fmt.Errorf("processing doc-9: %w", mid)

	assert.True(t, IsCode(outer, ErrCodeCacheCorruption))
	assert.True(t, IsCode(outer, ErrCodeCacheError))
	assert.False(t, IsCode(outer, ErrCodeDocumentFailed))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(nil))
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeTimeout, GetCode(New(ErrCodeTimeout, "deadline")))
}

func TestFailingStage(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		stage string
	}{
		{ErrCodeParseFailed, "PARSE"},
		{ErrCodeExtractFailed, "EXT"},
		{ErrCodeOntologyInvalid, "LINK"},
		{ErrCodeExternalCallFailed, "LEARN"},
		{ErrCodeCacheCorruption, "CACHE"},
		{ErrCodeGraphWriteFailed, "GRAPH"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.stage, FailingStage(New(tt.code, "")), string(tt.code))
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeCacheMiss, "")))
	assert.True(t, IsNotFound(New(ErrCodeNotFound, "")))
	assert.False(t, IsNotFound(New(ErrCodeConflict, "")))
}
