package datafactory

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

type managementTokenState int

// managementTokenState represents the state of the cached token. Each token
// can be in one of the following three states:
//   - fresh: The token is valid.
//   - stale: The token is valid but will expire soon.
//   - expired: The token has expired and cannot be used.
const (
	tokenFresh   managementTokenState = iota // #0 The token is valid.
	tokenStale                               // #1 The token is valid but will expire soon.
	tokenExpired                             // #2 The token has expired and cannot be used.
)

const (
	expiryBuffer = 3 * time.Minute // We add a buffer of 3 mins from actual expiry.
)

// managementTokenSource caches AAD access tokens for the resource manager
// scope so that the client does not hit the credential on every request.
//
// Token state through time:
//
//	issue time     expiry time
//	    v               v
//	    | fresh | stale | expired -> time
//	    |     valid     |
//
// A stale token is still handed to callers while a refresh runs in the
// background; an expired token forces a blocking refresh.
type managementTokenSource struct {
	credential azcore.TokenCredential

	// scope is the AAD scope tokens are requested for, e.g.
	// "https://management.azure.com/.default".
	scope string

	// Duration during which a token is considered stale, see tokenState.
	staleDuration time.Duration

	// A mutex to synchronize access to the token and expiry time.
	mu sync.Mutex

	// The token.
	cachedToken string

	// The time at which the token will expire.
	expiryTime time.Time
}

func newManagementTokenSource(credential azcore.TokenCredential, scope string, staleDuration time.Duration) *managementTokenSource {
	return &managementTokenSource{
		credential:    credential,
		scope:         scope,
		staleDuration: staleDuration,
	}
}

func (ts *managementTokenSource) tokenState() managementTokenState {
	if ts.getToken() == "" {
		return tokenExpired
	}

	lifeSpan := ts.getExpiryTime().Sub(time.Now())

	switch {
	case lifeSpan <= 0:
		return tokenExpired
	case lifeSpan <= ts.staleDuration:
		return tokenStale
	default:
		return tokenFresh
	}
}

// getToken returns the cached token.
func (ts *managementTokenSource) getToken() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.cachedToken
}

// getExpiryTime returns the expiry time of the token.
func (ts *managementTokenSource) getExpiryTime() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.expiryTime
}

// setToken sets the token and expiry time.
func (ts *managementTokenSource) setToken(token string, expiryTime time.Time) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.cachedToken = token
	ts.expiryTime = expiryTime
}

// token returns a bearer token for the management scope.
// It checks the token state and returns the cached token if it is fresh.
// A stale token triggers a background refresh and is returned as-is; an
// expired token is refreshed synchronously before returning.
func (ts *managementTokenSource) token(ctx context.Context) (string, error) {
	switch ts.tokenState() {
	case tokenFresh:
		return ts.getToken(), nil
	case tokenStale:
		slog.Debugw(ctx, "management token is stale, triggering async refresh")
		ts.triggerAsyncTokenRefresh()
		return ts.getToken(), nil
	default:
		// expired.
		slog.Debugw(ctx, "management token is expired, refreshing synchronously")
		if err := ts.blockingTokenRefresh(ctx); err != nil {
			return "", oops.Wrapf(err, "error refreshing token synchronously")
		}
		return ts.getToken(), nil
	}
}

// triggerAsyncTokenRefresh refreshes the token in the background.
// It recovers from any panics and logs them as errors.
// It is called when the token is stale and a new token will be needed for
// further requests.
func (ts *managementTokenSource) triggerAsyncTokenRefresh() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				slog.Warnw(ctx, "panic hit in async token refresh", "panic", r)
			}
		}()

		if err := ts.blockingTokenRefresh(ctx); err != nil {
			slog.Warnw(ctx, "error refreshing token asynchronously", "error", err)
			return
		}
		slog.Debugw(ctx, "token successfully refreshed asynchronously")
	}()
}

// blockingTokenRefresh refreshes the token synchronously through the
// credential. It is called when the token has fully expired (and once for the
// first request of the process).
func (ts *managementTokenSource) blockingTokenRefresh(ctx context.Context) error {
	accessToken, err := ts.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{ts.scope},
	})
	if err != nil {
		return oops.Wrapf(err, "error getting token for scope %s", ts.scope)
	}

	ts.setToken(accessToken.Token, accessToken.ExpiresOn.Add(-expiryBuffer))
	return nil
}
