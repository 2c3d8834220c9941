package datafactory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagementTokenSource_tokenState(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		expiry time.Time
		want   managementTokenState
	}{
		{
			name: "empty token is expired",
			want: tokenExpired,
		},
		{
			name:   "past expiry is expired",
			token:  "foo",
			expiry: time.Now().Add(-time.Minute),
			want:   tokenExpired,
		},
		{
			name:   "inside stale window is stale",
			token:  "foo",
			expiry: time.Now().Add(2 * time.Minute),
			want:   tokenStale,
		},
		{
			name:   "long lived token is fresh",
			token:  "foo",
			expiry: time.Now().Add(time.Hour),
			want:   tokenFresh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newManagementTokenSource(&staticCredential{}, "scope", 5*time.Minute)
			ts.setToken(tt.token, tt.expiry)
			require.Equal(t, tt.want, ts.tokenState())
		})
	}
}

func TestManagementTokenSource_refreshesWhenExpired(t *testing.T) {
	cred := &staticCredential{token: "new-token"}
	ts := newManagementTokenSource(cred, "scope", 5*time.Minute)

	token, err := ts.token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-token", token)
	require.Equal(t, 1, cred.getCnt)

	// The expiry buffer keeps the refreshed token fresh for well under the
	// credential's one hour lifetime but well over the stale window.
	require.Equal(t, tokenFresh, ts.tokenState())
}

func TestManagementTokenSource_cachesFreshToken(t *testing.T) {
	cred := &staticCredential{token: "new-token"}
	ts := newManagementTokenSource(cred, "scope", 5*time.Minute)
	ts.setToken("cached-token", time.Now().Add(time.Hour))

	token, err := ts.token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "cached-token", token)
	require.Equal(t, 0, cred.getCnt)
}

func TestManagementTokenSource_staleReturnsCachedToken(t *testing.T) {
	cred := &staticCredential{token: "new-token"}
	ts := newManagementTokenSource(cred, "scope", 5*time.Minute)
	ts.setToken("cached-token", time.Now().Add(time.Minute))

	// A stale token is returned immediately; the refresh happens off the
	// request path.
	token, err := ts.token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "cached-token", token)
}
