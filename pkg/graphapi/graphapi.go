// Package graphapi implements the OAuth and publishing flows against the
// Facebook Graph API for Instagram Business accounts.
package graphapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igreposter/pkg/apierr"
	"igreposter/pkg/logger"
)

const (
	defaultBaseURL  = "https://graph.facebook.com/v21.0"
	defaultOAuthURL = "https://www.facebook.com/v21.0/dialog/oauth"

	// Instagram asks for a short settle delay between creating a media
	// container and publishing it.
	defaultPublishDelay = 2 * time.Second
)

// oauthScopes is the permission set required for publishing.
var oauthScopes = []string{
	"instagram_basic",
	"instagram_content_publish",
	"pages_show_list",
	"pages_read_engagement",
}

// Options configures a Graph API client.
type Options struct {
	AppID        string
	AppSecret    string
	RedirectURI  string
	BaseURL      string
	OAuthURL     string
	PublishDelay time.Duration
	Timeout      time.Duration
}

// Client talks to the Graph API.
type Client struct {
	httpClient   *http.Client
	appID        string
	appSecret    string
	redirectURI  string
	baseURL      string
	oauthURL     string
	publishDelay time.Duration
	logger       logger.Logger
}

// New creates a Graph API client.
func New(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.OAuthURL == "" {
		opts.OAuthURL = defaultOAuthURL
	}
	if opts.PublishDelay <= 0 {
		opts.PublishDelay = defaultPublishDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		appID:        opts.AppID,
		appSecret:    opts.AppSecret,
		redirectURI:  opts.RedirectURI,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		oauthURL:     opts.OAuthURL,
		publishDelay: opts.PublishDelay,
		logger:       log,
	}
}

// Configured reports whether app credentials are present.
func (c *Client) Configured() bool {
	return c.appID != "" && c.appSecret != ""
}

// AuthURL builds the OAuth dialog URL the browser is redirected to.
func (c *Client) AuthURL(state string) string {
	query := url.Values{
		"client_id":     {c.appID},
		"redirect_uri":  {c.redirectURI},
		"scope":         {strings.Join(oauthScopes, ",")},
		"response_type": {"code"},
		"state":         {state},
	}
	return c.oauthURL + "?" + query.Encode()
}

// ExchangeCode trades an OAuth code for a short-lived user access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if !c.Configured() {
		return "", apierr.MissingConfig("INSTAGRAM_APP_ID/INSTAGRAM_APP_SECRET")
	}

	query := url.Values{
		"client_id":     {c.appID},
		"client_secret": {c.appSecret},
		"redirect_uri":  {c.redirectURI},
		"code":          {code},
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.get(ctx, "/oauth/access_token", query, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &apierr.Error{Type: apierr.ErrorTypeAuth, Message: "token exchange returned no access token"}
	}
	return out.AccessToken, nil
}

// LongLivedToken trades a short-lived token for a long-lived one.
func (c *Client) LongLivedToken(ctx context.Context, shortToken string) (string, error) {
	query := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.appID},
		"client_secret":     {c.appSecret},
		"fb_exchange_token": {shortToken},
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.get(ctx, "/oauth/access_token", query, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &apierr.Error{Type: apierr.ErrorTypeAuth, Message: "token extension returned no access token"}
	}
	return out.AccessToken, nil
}

// BusinessAccount is an Instagram Business account reachable through one
// of the user's Facebook pages.
type BusinessAccount struct {
	ID            string
	Username      string
	ProfilePicURL string
	PageID        string
	PageToken     string
}

// DiscoverBusinessAccount walks the user's pages and returns the first one
// with a linked Instagram Business account.
func (c *Client) DiscoverBusinessAccount(ctx context.Context, userToken string) (*BusinessAccount, error) {
	query := url.Values{
		"access_token": {userToken},
		"fields":       {"id,name,access_token,instagram_business_account{id,username,profile_picture_url}"},
	}

	var out struct {
		Data []struct {
			ID          string `json:"id"`
			AccessToken string `json:"access_token"`
			IG          *struct {
				ID            string `json:"id"`
				Username      string `json:"username"`
				ProfilePicURL string `json:"profile_picture_url"`
			} `json:"instagram_business_account"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/me/accounts", query, &out); err != nil {
		return nil, err
	}

	for _, page := range out.Data {
		if page.IG == nil {
			continue
		}
		return &BusinessAccount{
			ID:            page.IG.ID,
			Username:      page.IG.Username,
			ProfilePicURL: page.IG.ProfilePicURL,
			PageID:        page.ID,
			PageToken:     page.AccessToken,
		}, nil
	}
	return nil, &apierr.Error{
		Type:    apierr.ErrorTypeNotFound,
		Message: "no page with a linked Instagram Business account",
	}
}

// Publish creates a media container for the image and publishes it after
// the settle delay. It returns the published media ID.
func (c *Client) Publish(ctx context.Context, accountID, token, imageURL, caption string) (string, error) {
	form := url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {token},
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, fmt.Sprintf("/%s/media", accountID), form, &container); err != nil {
		return "", fmt.Errorf("failed to create media container: %w", err)
	}
	if container.ID == "" {
		return "", &apierr.Error{Type: apierr.ErrorTypeParsing, Message: "media container response had no id"}
	}

	select {
	case <-time.After(c.publishDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	publishForm := url.Values{
		"creation_id":  {container.ID},
		"access_token": {token},
	}
	var published struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, fmt.Sprintf("/%s/media_publish", accountID), publishForm, &published); err != nil {
		return "", fmt.Errorf("failed to publish media container: %w", err)
	}

	c.logger.InfoWithFields("media published", map[string]interface{}{
		"account_id": accountID,
		"media_id":   published.ID,
	})
	return published.ID, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, target)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierr.Error{
			Type:    apierr.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierr.Error{
			Type:    apierr.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if resp.StatusCode != http.StatusOK {
		var graphErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		message := "graph api request failed"
		if json.Unmarshal(body, &graphErr) == nil && graphErr.Error.Message != "" {
			message = graphErr.Error.Message
		}
		errType := apierr.ErrorTypeServerError
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			errType = apierr.ErrorTypeAuth
		}
		return &apierr.Error{Type: errType, Message: message, Code: resp.StatusCode}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &apierr.Error{
			Type:    apierr.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse response: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return nil
}
