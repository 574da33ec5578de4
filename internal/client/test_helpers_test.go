package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/kintone/internal/auth"
	"github.com/fivetwenty-io/kintone/internal/client"
	kintonehttp "github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// TestOperation is one request/response round trip against a stub server.
type TestOperation struct {
	Name           string
	ExpectedMethod string
	ExpectedPath   string
	StatusCode     int
	Response       interface{}
	Inspect        func(t *testing.T, request *http.Request)
	WantErr        bool
	ErrMessage     string
}

// RunOperationTests runs each operation against its own server.
func RunOperationTests(t *testing.T, tests []TestOperation, call func(*client.Client) error) {
	t.Helper()

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedMethod, request.Method)
				assert.Equal(t, testCase.ExpectedPath, request.URL.Path)

				if testCase.Inspect != nil {
					testCase.Inspect(t, request)
				}

				writer.Header().Set("Content-Type", "application/json")
				writer.WriteHeader(testCase.StatusCode)

				if testCase.Response != nil {
					_ = json.NewEncoder(writer).Encode(testCase.Response)
				}
			}))
			defer server.Close()

			err := call(newTestClient(t, server.URL))

			if testCase.WantErr {
				require.Error(t, err)

				if testCase.ErrMessage != "" {
					assert.Contains(t, err.Error(), testCase.ErrMessage)
				}

				return
			}

			require.NoError(t, err)
		})
	}
}

func newTestClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	c, err := client.New(context.Background(), &kintone.Config{BaseURL: baseURL, APITokens: []string{"token"}})
	require.NoError(t, err)

	return c
}

func newHTTPClient(baseURL string) *kintonehttp.Client {
	return kintonehttp.NewClient(baseURL, &auth.APITokenCredentials{Tokens: []string{"token"}})
}

// notFoundBody is the error payload kintone returns for a missing record.
func notFoundBody() map[string]string {
	return map[string]string{
		"code":    kintone.ErrorCodeNotFound,
		"id":      "err-1",
		"message": "The specified record is not found.",
	}
}

func decodeBody(t *testing.T, request *http.Request) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}

	err := json.NewDecoder(request.Body).Decode(&body)
	require.NoError(t, err)

	return body
}

// unreachable fails the test if any request arrives.
func unreachable(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
	}))
	t.Cleanup(server.Close)

	return server.URL
}
