package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/quarry/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"

// NewAADHTTPClient returns an HTTP client that authenticates with an Azure AD
// client-credential token, refreshed as it expires.
func NewAADHTTPClient(ctx context.Context, aad common.AADConfig, timeout time.Duration) *http.Client {
	cfg := clientcredentials.Config{
		ClientID:     aad.ClientID,
		ClientSecret: aad.ClientSecret,
		TokenURL:     fmt.Sprintf(tokenURLFormat, aad.TenantID),
		Scopes:       []string{aad.Scope},
	}

	// token requests share the search timeout
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})

	client := cfg.Client(ctx)
	client.Timeout = timeout
	return client
}
