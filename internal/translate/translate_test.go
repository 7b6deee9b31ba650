package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		var body struct {
			Q      []string `json:"q"`
			Source string   `json:"source"`
			Target string   `json:"target"`
			Format string   `json:"format"`
			APIKey string   `json:"api_key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "auto", body.Source)
		assert.Equal(t, "es", body.Target)
		assert.Equal(t, "text", body.Format)
		assert.Equal(t, "key", body.APIKey)

		out := make([]string, len(body.Q))
		for i, q := range body.Q {
			out[i] = "es:" + q
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"translatedText": out})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "key")
	got, err := c.Translate(context.Background(), []string{"hello", "world"}, "", "es")
	require.NoError(t, err)
	assert.Equal(t, []string{"es:hello", "es:world"}, got)
}

func TestTranslateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Translate(context.Background(), []string{"x"}, "en", "fr")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Invalid API key"))
}

func TestTranslateUnsupportedLanguage(t *testing.T) {
	_, err := NewClient("http://unused", "").Translate(context.Background(), []string{"x"}, "", "xx")
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
}

func TestTranslateEmptyInput(t *testing.T) {
	got, err := NewClient("http://unused", "").Translate(context.Background(), nil, "", "de")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSupportedLanguages(t *testing.T) {
	assert.True(t, IsSupported("ja"))
	assert.False(t, IsSupported("klingon"))
	langs := SupportedLanguages()
	langs[0] = "changed"
	assert.True(t, IsSupported("en"))
}
