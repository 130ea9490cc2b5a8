package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func newTestServer(t *testing.T, status int, text string) (*httptest.Server, *messagesRequest, *http.Header) {
	t.Helper()
	var got messagesRequest
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": text}},
			"usage":   map[string]int{"input_tokens": 100, "output_tokens": 20},
		})
	}))
	t.Cleanup(server.Close)
	return server, &got, &headers
}

func TestClaudeAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("parses items tip merchant and date", func(t *testing.T) {
		server, req, headers := newTestServer(t, http.StatusOK,
			`{"items":[{"name":"Pizza","price":20},{"name":"Pfand","price":0.25}],"tip":5,"merchantName":"Trattoria","date":"2024-05-01"}`)

		a, err := NewClaudeAnalyzer("test-key", WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithModel("test-model"))
		require.NoError(t, err)

		receipt, err := a.Analyze(ctx, jpegHeader)
		require.NoError(t, err)

		require.Len(t, receipt.Items, 2)
		assert.Equal(t, "Pizza", receipt.Items[0].Name)
		assert.Equal(t, 20.0, receipt.Items[0].Price)
		assert.Equal(t, 0.25, receipt.Items[1].Price)
		assert.Equal(t, 5.0, receipt.Tip)
		assert.Equal(t, "Trattoria", receipt.MerchantName)
		assert.Equal(t, "2024-05-01", receipt.Date)

		assert.Equal(t, "test-key", headers.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		require.NotNil(t, req.Messages[0].Content[0].Source)
		assert.Equal(t, "image/jpeg", req.Messages[0].Content[0].Source.MediaType)
	})

	t.Run("strips markdown code fence", func(t *testing.T) {
		server, _, _ := newTestServer(t, http.StatusOK, "```json\n{\"items\":[{\"name\":\"Beer\",\"price\":4.5}]}\n```")
		a, err := NewClaudeAnalyzer("test-key", WithEndpoint(server.URL))
		require.NoError(t, err)

		receipt, err := a.Analyze(ctx, jpegHeader)
		require.NoError(t, err)
		require.Len(t, receipt.Items, 1)
		assert.Equal(t, "Beer", receipt.Items[0].Name)
	})

	t.Run("missing items and tip default to empty and zero", func(t *testing.T) {
		server, _, _ := newTestServer(t, http.StatusOK, `{"merchantName":"Kiosk"}`)
		a, err := NewClaudeAnalyzer("test-key", WithEndpoint(server.URL))
		require.NoError(t, err)

		receipt, err := a.Analyze(ctx, jpegHeader)
		require.NoError(t, err)
		assert.NotNil(t, receipt.Items)
		assert.Empty(t, receipt.Items)
		assert.Zero(t, receipt.Tip)
		assert.Equal(t, "Kiosk", receipt.MerchantName)
	})

	t.Run("error status is an AnalysisError", func(t *testing.T) {
		server, _, _ := newTestServer(t, http.StatusServiceUnavailable, "")
		a, err := NewClaudeAnalyzer("test-key", WithEndpoint(server.URL))
		require.NoError(t, err)

		_, err = a.Analyze(ctx, jpegHeader)
		require.Error(t, err)
		assert.True(t, IsAnalysisError(err))
	})

	t.Run("malformed JSON is an AnalysisError", func(t *testing.T) {
		server, _, _ := newTestServer(t, http.StatusOK, "I could not read this receipt.")
		a, err := NewClaudeAnalyzer("test-key", WithEndpoint(server.URL))
		require.NoError(t, err)

		_, err = a.Analyze(ctx, jpegHeader)
		assert.True(t, IsAnalysisError(err))
	})

	t.Run("network failure is an AnalysisError", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		a, err := NewClaudeAnalyzer("test-key", WithEndpoint(url))
		require.NoError(t, err)

		_, err = a.Analyze(ctx, jpegHeader)
		assert.True(t, IsAnalysisError(err))
	})

	t.Run("oversized image is rejected before the call", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		a, err := NewClaudeAnalyzer("test-key", WithEndpoint(server.URL))
		require.NoError(t, err)

		_, err = a.Analyze(ctx, make([]byte, MaxImageSize+1))
		assert.ErrorIs(t, err, ErrImageTooLarge)
		assert.False(t, IsAnalysisError(err))
		assert.False(t, called)
	})
}

func TestNewClaudeAnalyzer_RequiresKey(t *testing.T) {
	_, err := NewClaudeAnalyzer("   ")
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```JSON {\"a\":1}```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in), "input %q", tt.in)
	}
}

func TestCheckImageSize(t *testing.T) {
	assert.NoError(t, CheckImageSize(make([]byte, MaxImageSize)))
	assert.ErrorIs(t, CheckImageSize(make([]byte, MaxImageSize+1)), ErrImageTooLarge)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Analyze(context.Background(), jpegHeader)
	assert.True(t, IsAnalysisError(err))
}
