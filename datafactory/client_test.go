package datafactory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/require"
)

// staticCredential is a TokenCredential that always returns the same token.
type staticCredential struct {
	token  string
	expiry time.Time
	err    error
	getCnt int
}

func (c *staticCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.getCnt++
	if c.err != nil {
		return azcore.AccessToken{}, c.err
	}
	expiry := c.expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}
	return azcore.AccessToken{Token: c.token, ExpiresOn: expiry}, nil
}

func TestClientDo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subscriptions/sub/resourceGroups/rg/providers/Microsoft.DataFactory/factories/f/pipelines/foo", r.URL.Path)
		require.Equal(t, "2018-06-01", r.URL.Query().Get("api-version"))
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "Bearer foo-token", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)

		require.NoError(t, err)
		require.JSONEq(t, `{"properties": {"activities": null}}`, string(body))
		fmt.Fprintln(w, `{"name": "foo"}`)
	}))
	defer ts.Close()

	c, err := NewWithEndpoint(ts.URL, "sub", "rg", "f", &staticCredential{token: "foo-token"})
	require.NoError(t, err)

	output, err := c.CreateOrUpdatePipeline(context.Background(), &CreateOrUpdatePipelineInput{
		Name:     "foo",
		Pipeline: Pipeline{},
	})
	require.NoError(t, err)
	require.Equal(t, "foo", output.Name)
}

func TestClientAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, `{"error": {"code": "ResourceNotFound", "message": "no such pipeline"}}`)
	}))
	defer ts.Close()

	c, err := NewWithEndpoint(ts.URL, "sub", "rg", "f", &staticCredential{token: "foo-token"})
	require.NoError(t, err)

	_, err = c.GetPipeline(context.Background(), &GetPipelineInput{Name: "missing"})
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.Contains(t, err.Error(), "ResourceNotFound")
}

func TestClientRetry(t *testing.T) {
	count := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		t.Logf("try #%d at %s", count, time.Now())
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c, err := NewWithEndpoint(ts.URL, "sub", "rg", "f", &staticCredential{token: "foo-token"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = c.GetFactory(ctx, &GetFactoryInput{})
	require.Error(t, err)
	require.True(t, count >= 3)
}

func TestClientNoRetryOnBadRequest(t *testing.T) {
	count := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, `{"error": {"code": "BadRequest", "message": "malformed definition"}}`)
	}))
	defer ts.Close()

	c, err := NewWithEndpoint(ts.URL, "sub", "rg", "f", &staticCredential{token: "foo-token"})
	require.NoError(t, err)

	_, err = c.GetFactory(context.Background(), &GetFactoryInput{})
	require.Error(t, err)
	require.Equal(t, 1, count)
}

func TestNewValidation(t *testing.T) {
	cred := &staticCredential{token: "foo-token"}

	_, err := New("", "rg", "f", cred)
	require.Error(t, err)

	_, err = New("sub", "rg", "f", nil)
	require.Error(t, err)

	c, err := New("sub", "rg", "f", cred)
	require.NoError(t, err)
	require.Equal(t, "/subscriptions/sub/resourceGroups/rg/providers/Microsoft.DataFactory/factories/f", c.ResourceID())
}
