package experian

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/provider"
)

var testAttrs = domain.QueryAttributes{
	FirstName: "Jane", LastName: "Doe", Street: "123 Main St",
	City: "Appleton", State: "WI", Zip: "54911",
}

func failureKind(t *testing.T, err error) provider.FailureKind {
	t.Helper()
	var f *provider.Failure
	require.ErrorAs(t, err, &f)
	return f.Kind
}

func TestRecordsClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Auth-Token"))

		var req recordsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane", req.LeadTransDetails["FIRST_NAME"])
		assert.Equal(t, "54911", req.LeadAddress["ZIP"])

		_, _ = w.Write([]byte(`{"profile":{"name":"JANE DOE"},"tabs":3}`))
	}))
	defer srv.Close()

	c := NewRecordsClient(Config{URL: srv.URL, AuthToken: "secret"})
	res, err := c.Call(context.Background(), testAttrs)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.JSONEq(t, `{"profile":{"name":"JANE DOE"},"tabs":3}`, string(res.Payload))
}

func TestRecordsClient_NoRecord(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"empty array", `[]`},
		{"message only envelope", `{"message":"No data found for the provided search criteria"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewRecordsClient(Config{URL: srv.URL, AuthToken: "secret"})
			res, err := c.Call(context.Background(), testAttrs)
			require.NoError(t, err)
			assert.False(t, res.Found, "expected NoRecord for %s", tt.body)
		})
	}
}

func TestRecordsClient_FailureMapping(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		c := NewRecordsClient(Config{})
		_, err := c.Call(context.Background(), testAttrs)
		assert.Equal(t, provider.NotConfigured, failureKind(t, err))
	})

	t.Run("upstream rejected carries status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewRecordsClient(Config{URL: srv.URL, AuthToken: "secret"})
		_, err := c.Call(context.Background(), testAttrs)
		var f *provider.Failure
		require.ErrorAs(t, err, &f)
		assert.Equal(t, provider.UpstreamRejected, f.Kind)
		assert.Equal(t, http.StatusTooManyRequests, f.Status)
	})

	t.Run("malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>gateway error</html>`))
		}))
		defer srv.Close()

		c := NewRecordsClient(Config{URL: srv.URL, AuthToken: "secret"})
		_, err := c.Call(context.Background(), testAttrs)
		assert.Equal(t, provider.MalformedResponse, failureKind(t, err))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer srv.Close()

		c := NewRecordsClient(Config{URL: srv.URL, AuthToken: "secret", Timeout: 50 * time.Millisecond})
		_, err := c.Call(context.Background(), testAttrs)
		assert.Equal(t, provider.Timeout, failureKind(t, err))
	})

	t.Run("unreachable", func(t *testing.T) {
		c := NewRecordsClient(Config{URL: "http://127.0.0.1:1", AuthToken: "secret", Timeout: time.Second})
		_, err := c.Call(context.Background(), testAttrs)
		assert.Equal(t, provider.Unreachable, failureKind(t, err))
	})
}

func TestPhoneClient_FoundAndNoRecord(t *testing.T) {
	t.Run("phones present", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req apertureRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"phone"}, req.Attributes)
			assert.Equal(t, []string{"Jane"}, req.Components["first_name"])

			_, _ = w.Write([]byte(`{"result":{"phones":["+19205551234"]},"metadata":{}}`))
		}))
		defer srv.Close()

		c := NewPhoneClient(Config{URL: srv.URL, AuthToken: "secret"})
		res, err := c.Call(context.Background(), testAttrs)
		require.NoError(t, err)
		assert.True(t, res.Found)
	})

	t.Run("no phones is NoRecord", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result":{"phones":[]}}`))
		}))
		defer srv.Close()

		c := NewPhoneClient(Config{URL: srv.URL, AuthToken: "secret"})
		res, err := c.Call(context.Background(), testAttrs)
		require.NoError(t, err)
		assert.False(t, res.Found)
	})
}

func TestEmailClient_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apertureRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"email"}, req.Attributes)

		_, _ = w.Write([]byte(`{"result":{"emails":["jane@example.com"]}}`))
	}))
	defer srv.Close()

	c := NewEmailClient(Config{URL: srv.URL, AuthToken: "secret"})
	res, err := c.Call(context.Background(), testAttrs)
	require.NoError(t, err)
	assert.True(t, res.Found)
}
