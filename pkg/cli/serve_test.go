package cli

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpstream_Echo(t *testing.T) {
	handler, err := buildUpstream("")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"echo":true,"method":"GET","path":"/ping"}`, rec.Body.String())
}

func TestBuildUpstream_Proxy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer backend.Close()

	handler, err := buildUpstream(backend.URL)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/anything", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestBuildUpstream_InvalidTarget(t *testing.T) {
	_, err := buildUpstream("not a url")
	assert.Error(t, err)

	_, err = buildUpstream("/relative/only")
	assert.Error(t, err)
}
