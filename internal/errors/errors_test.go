package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "shorturl/internal/errors"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, customerrors.KindUnknown, customerrors.KindOf(nil))
	assert.Equal(t, customerrors.KindUnknown, customerrors.KindOf(stderrors.New("plain")))
	assert.Equal(t, customerrors.KindValidation, customerrors.KindOf(customerrors.Validationf("bad input")))
	assert.Equal(t, customerrors.KindConflict, customerrors.KindOf(customerrors.Conflictf("taken")))
	assert.Equal(t, customerrors.KindNotFound, customerrors.KindOf(customerrors.NotFoundf("missing")))
	assert.Equal(t, customerrors.KindExpired, customerrors.KindOf(customerrors.Expiredf("gone")))
	assert.Equal(t, customerrors.KindExhausted, customerrors.KindOf(customerrors.Exhaustedf("gave up")))
}

func TestKindOf_UnwrapsWrappedErrors(t *testing.T) {
	inner := customerrors.NotFoundf("short code %q not found", "abc123")
	wrapped := fmt.Errorf("resolving redirect: %w", inner)

	assert.Equal(t, customerrors.KindNotFound, customerrors.KindOf(wrapped))
	assert.True(t, customerrors.IsNotFound(wrapped))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := customerrors.Wrap(customerrors.KindConflict, "create failed", cause)

	require.EqualError(t, err, "create failed: disk full")
	assert.True(t, customerrors.IsConflict(err))
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, customerrors.KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusConflict, customerrors.KindConflict.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, customerrors.KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusGone, customerrors.KindExpired.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, customerrors.KindExhausted.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, customerrors.KindUnknown.HTTPStatus())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", customerrors.KindValidation.String())
	assert.Equal(t, "expired", customerrors.KindExpired.String())
	assert.Equal(t, "unknown", customerrors.KindUnknown.String())
}
