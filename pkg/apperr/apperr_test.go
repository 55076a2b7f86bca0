package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(NotFound("missing")))
	assert.Equal(t, http.StatusForbidden, StatusCode(Authorization("nope")))
	assert.Equal(t, http.StatusBadRequest, StatusCode(QuotaExceeded("limit")))
	assert.Equal(t, http.StatusBadRequest, StatusCode(Validation("bad field")))
	assert.Equal(t, http.StatusConflict, StatusCode(InvalidState("already used")))
	assert.Equal(t, http.StatusGone, StatusCode(Expired("too late")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := Wrap(errors.New("row missing"), ErrNotFound, "deal lookup")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestMessagesPreserved(t *testing.T) {
	err := InvalidState("redemption code already used")
	assert.Contains(t, err.Error(), "already used")
}
