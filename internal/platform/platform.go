// Package platform issues outbound requests to console.redhat.com services
// on behalf of the caller.
//
// Three variants exist, selected by configuration:
//   - platform: forwards the caller's x-rh-identity header (in-cluster)
//   - sa: authenticates with a service account via client credentials
//   - dev: exchanges an offline refresh token for bearer tokens (local dev)
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/identity"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pkg/config"
)

// Request variants.
const (
	RequestPlatform = "platform"
	RequestSA       = "sa"
	RequestDev      = "dev"
)

// devClientID is the public client used for offline tokens.
const devClientID = "rhsm-api"

// Requester sends a request to baseURL+apiPath. body, when non-nil, is sent
// as JSON. identity is the caller's raw x-rh-identity; an empty identity
// sends the request unauthenticated. The caller closes the response body.
type Requester interface {
	Do(ctx context.Context, method, baseURL, apiPath string, body any, identity string) (*http.Response, error)
}

// New builds the requester selected by cfg.Request.
func New(cfg config.PlatformConfig) (Requester, error) {
	client, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	// Token requests go through the same client (and proxy).
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, client)

	switch cfg.Request {
	case "", RequestPlatform:
		return &identityRequester{client: client}, nil
	case RequestSA:
		cc := &clientcredentials.Config{
			ClientID:     cfg.SAClientID,
			ClientSecret: cfg.SAClientSecret,
			TokenURL:     cfg.SATokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		return &bearerRequester{client: client, tokens: cc.TokenSource(tokenCtx)}, nil
	case RequestDev:
		oc := &oauth2.Config{
			ClientID: devClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.DevRefreshURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		ts := oc.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.DevOfflineToken})
		return &bearerRequester{client: client, tokens: ts}, nil
	default:
		return nil, fmt.Errorf("unknown platform request type %q", cfg.Request)
	}
}

func newHTTPClient(cfg config.PlatformConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid platform proxy %q", cfg.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(transport),
	}, nil
}

// identityRequester forwards the caller identity as-is.
type identityRequester struct {
	client *http.Client
}

func (r *identityRequester) Do(ctx context.Context, method, baseURL, apiPath string, body any, token string) (*http.Response, error) {
	req, err := newRequest(ctx, method, baseURL, apiPath, body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set(identity.HeaderName, token)
	}
	return r.client.Do(req)
}

// bearerRequester authenticates as the service itself. The caller identity
// only decides whether the request is authenticated.
type bearerRequester struct {
	client *http.Client
	tokens oauth2.TokenSource
}

func (r *bearerRequester) Do(ctx context.Context, method, baseURL, apiPath string, body any, token string) (*http.Response, error) {
	req, err := newRequest(ctx, method, baseURL, apiPath, body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		tok, err := r.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("obtain platform token: %w", err)
		}
		tok.SetAuthHeader(req)
	}
	return r.client.Do(req)
}

func newRequest(ctx context.Context, method, baseURL, apiPath string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(baseURL, "/")+apiPath, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
