package imagegen

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaPirate/Glisk/internal/classify"
)

func TestExtractImageURLBareString(t *testing.T) {
	url, err := extractImageURL([]byte(`"https://cdn.example/img.png"`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.png", url)
}

func TestExtractImageURLSingleElementArray(t *testing.T) {
	url, err := extractImageURL([]byte(`["https://cdn.example/img.png"]`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.png", url)
}

func TestExtractImageURLRejectsEmptyArray(t *testing.T) {
	_, err := extractImageURL([]byte(`[]`))
	assert.Error(t, err)
}

func TestExtractImageURLRejectsUnexpectedShape(t *testing.T) {
	_, err := extractImageURL([]byte(`{"unexpected":true}`))
	assert.Error(t, err)
}

func TestClassifyPredictionErrorDetectsContentPolicyKeywords(t *testing.T) {
	for _, msg := range []string{
		"Content policy violation detected",
		"NSFW content blocked",
		"failed safety checker",
		"inappropriate content",
	} {
		err := classifyPredictionError(http.StatusOK, msg)
		assert.Equal(t, classify.KindContentPolicy, classify.KindOf(err), "message: %s", msg)
	}
}

func TestClassifyPredictionErrorFallsBackToHTTPStatus(t *testing.T) {
	err := classifyPredictionError(http.StatusInternalServerError, "model crashed")
	assert.Equal(t, classify.KindTransient, classify.KindOf(err))
}

func TestClassifyPredictionErrorAuthFailureIsPermanent(t *testing.T) {
	err := classifyPredictionError(http.StatusUnauthorized, "invalid token")
	assert.Equal(t, classify.KindPermanent, classify.KindOf(err))
}
