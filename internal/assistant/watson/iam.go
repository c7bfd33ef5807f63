package watson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultIAMURL is IBM Cloud's token endpoint.
const DefaultIAMURL = "https://iam.cloud.ibm.com/identity/token"

// iamExpiryDelta refreshes tokens slightly before IBM says they expire.
const iamExpiryDelta = time.Minute

// iamTokenSource exchanges an IBM Cloud API key for a bearer token.
type iamTokenSource struct {
	ctx    context.Context
	apiKey string
	url    string
	client *http.Client
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// IAMTokenSource returns a caching token source for apiKey. The client is
// used for the token requests only; a nil client uses http.DefaultClient.
func IAMTokenSource(ctx context.Context, apiKey, iamURL string, client *http.Client) oauth2.TokenSource {
	if iamURL == "" {
		iamURL = DefaultIAMURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return oauth2.ReuseTokenSource(nil, &iamTokenSource{
		ctx:    ctx,
		apiKey: apiKey,
		url:    iamURL,
		client: client,
	})
}

func (s *iamTokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{
		"grant_type": {"urn:ibm:params:oauth:grant-type:apikey"},
		"apikey":     {s.apiKey},
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create iam request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("iam request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read iam response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("iam returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr iamTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode iam response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("iam response has no access_token")
	}

	tok := &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   "Bearer",
	}
	switch {
	case tr.Expiration > 0:
		tok.Expiry = time.Unix(tr.Expiration, 0).Add(-iamExpiryDelta)
	case tr.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - iamExpiryDelta)
	}
	return tok, nil
}
