package yahoo_test

import (
	"context"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	yahoo "stockquote/internal/provider/yahoo"
)

func TestNewYahooAPIClient(t *testing.T) {
	t.Parallel()

	// Assert: construction should return a client.
	client, err := yahoo.NewYahooAPIClient()
	require.NoErrorf(t, err, "unexpected error: %v", err)
	require.NotNilf(t, client, "unexpected nil client")
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(emptySummaryResponse()))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Arrange: create a new client with a custom HTTP client.
	client, err := yahoo.NewYahooAPIClient(yahoo.WithHTTPClient(httpClient))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: call GetQuoteSummary with the custom HTTP client.
	client.GetQuoteSummary(context.Background(), "AAPL")
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Arrange: define a base url
	baseURL := "http://localhost:8080"

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(emptySummaryResponse()))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Arrange: create a new client.
	client, err := yahoo.NewYahooAPIClient(yahoo.WithHTTPClient(httpClient), yahoo.WithBaseURL(baseURL))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: call GetQuoteSummary with the overridden base URL.
	client.GetQuoteSummary(context.Background(), "AAPL")
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "bar", req.Header.Get("foo"))

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(emptySummaryResponse()))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Arrange: create a new client with a custom header.
	client, err := yahoo.NewYahooAPIClient(yahoo.WithHTTPClient(httpClient), yahoo.WithHeader(http.Header{
		"foo": []string{"bar"},
	}))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: call GetQuoteSummary with the custom header.
	client.GetQuoteSummary(context.Background(), "AAPL")
}

// emptySummaryResponse is the smallest well-formed quoteSummary envelope.
func emptySummaryResponse() map[string]any {
	return map[string]any{
		"quoteSummary": map[string]any{
			"result": []any{map[string]any{}},
			"error":  nil,
		},
	}
}
