package worker

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeAudio_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := analyzeAudio(context.Background(), ts.URL+"/missing.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestDecodeAudio_NotMP3(t *testing.T) {
	_, err := decodeAudio(bytes.NewReader([]byte("definitely not an mp3 stream")))
	require.Error(t, err)
}

func TestAnalyzeAudio_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := analyzeAudio(ctx, "http://127.0.0.1:1/a.mp3")
	assert.ErrorIs(t, err, context.Canceled)
}
