package gateway

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeErrorTruncatesDiagnostic(t *testing.T) {
	cause := errors.New("exit status 1")
	e := NewEncodeError(cause, strings.Repeat("x", 1500))
	assert.Len(t, e.Diagnostic, MaxDiagnosticLen)
	assert.True(t, errors.Is(e, cause))

	var target *EncodeError
	assert.True(t, errors.As(error(e), &target))
}

func TestCollaboratorErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	assert.True(t, errors.Is(&FetchError{Source: "s3://x", Err: cause}, cause))
	assert.True(t, errors.Is(&PublishError{Destination: "bucket", Err: cause}, cause))
	assert.Contains(t, (&PublishError{Destination: "bucket", Err: cause}).Error(), "bucket")
}
