package classify

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransientContentPolicyPermanentNilPassthrough(t *testing.T) {
	assert.NoError(t, Transient("op", nil))
	assert.NoError(t, ContentPolicy("op", nil))
	assert.NoError(t, Permanent("op", nil))
}

func TestKindOfRoundTrips(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, KindTransient, KindOf(Transient("op", cause)))
	assert.Equal(t, KindContentPolicy, KindOf(ContentPolicy("op", cause)))
	assert.Equal(t, KindPermanent, KindOf(Permanent("op", cause)))
}

func TestKindOfDefaultsToTransientForUnclassifiedError(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(errors.New("unclassified")))
}

func TestIsMatchesWrappedError(t *testing.T) {
	err := fmt.Errorf("wrapping: %w", Permanent("op", errors.New("inner")))
	assert.True(t, Is(err, KindPermanent))
	assert.False(t, Is(err, KindTransient))
}

func TestUnwrapExposesUnderlyingCause(t *testing.T) {
	cause := errors.New("inner")
	err := Transient("op", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestFromHTTPStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   Kind
	}{
		{"rate_limited", http.StatusTooManyRequests, KindTransient},
		{"unauthorized", http.StatusUnauthorized, KindPermanent},
		{"forbidden", http.StatusForbidden, KindPermanent},
		{"bad_request", http.StatusBadRequest, KindPermanent},
		{"unprocessable", http.StatusUnprocessableEntity, KindPermanent},
		{"server_error", http.StatusInternalServerError, KindTransient},
		{"no_status", 0, KindTransient},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := FromHTTPStatus("op", c.status, nil)
			assert.Equal(t, c.want, KindOf(err))
		})
	}
}

func TestFromHTTPStatusOKReturnsNil(t *testing.T) {
	assert.NoError(t, FromHTTPStatus("op", http.StatusOK, nil))
}
