package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesChainCode(t *testing.T) {
	base := ConfigInvalid("OPENAI_API_KEY is required")
	wrapped := Wrap(base, "loading configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.EqualError(t, wrapped, "loading configuration: OPENAI_API_KEY is required")
}

func TestWrapPlainErrorGetsInternalCode(t *testing.T) {
	wrapped := Wrap(stderrors.New("disk full"), "saving project")

	assert.Equal(t, CodeInternal, GetCode(wrapped))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "irrelevant"))
}

func TestGetCodeWithoutAppError(t *testing.T) {
	assert.Empty(t, GetCode(stderrors.New("plain")))
	assert.Empty(t, GetCode(nil))
}

func TestCollaboratorErrorKeepsCauseReachable(t *testing.T) {
	sentinel := stderrors.New("malformed response")
	err := CollaboratorError(fmt.Errorf("%w: unexpected token", sentinel))

	assert.Equal(t, CodeCollaborator, GetCode(err))
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "collaborator response rejected")
}

func TestExternalServiceErrorNamesService(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ExternalServiceError("openai", cause)

	assert.Equal(t, CodeExternalService, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "openai request failed: connection refused")
}
