package graphapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igreposter/pkg/apierr"
	"igreposter/pkg/logger"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error"})
	require.NoError(t, err)
	return New(Options{
		AppID:        "app-id",
		AppSecret:    "app-secret",
		RedirectURI:  "https://dash.test/auth/instagram/callback",
		BaseURL:      srv.URL,
		PublishDelay: time.Millisecond,
	}, log)
}

func TestAuthURL(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "error"})
	require.NoError(t, err)
	client := New(Options{
		AppID:       "app-id",
		AppSecret:   "app-secret",
		RedirectURI: "https://dash.test/auth/instagram/callback",
	}, log)

	parsed, err := url.Parse(client.AuthURL("state-token"))
	require.NoError(t, err)

	assert.Equal(t, "www.facebook.com", parsed.Host)
	assert.Equal(t, "/v21.0/dialog/oauth", parsed.Path)
	assert.Equal(t, "app-id", parsed.Query().Get("client_id"))
	assert.Equal(t, "state-token", parsed.Query().Get("state"))
	assert.Contains(t, parsed.Query().Get("scope"), "instagram_content_publish")
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		assert.Equal(t, "oauth-code", r.URL.Query().Get("code"))
		assert.Equal(t, "app-secret", r.URL.Query().Get("client_secret"))
		w.Write([]byte(`{"access_token": "short-token"}`))
	}))
	defer srv.Close()

	token, err := newTestClient(t, srv).ExchangeCode(context.Background(), "oauth-code")
	require.NoError(t, err)
	assert.Equal(t, "short-token", token)
}

func TestExchangeCodeWithoutCredentials(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "error"})
	require.NoError(t, err)
	client := New(Options{}, log)

	_, err = client.ExchangeCode(context.Background(), "code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrConfigurationMissing))
}

func TestDiscoverBusinessAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		w.Write([]byte(`{"data": [
			{"id": "page-1", "access_token": "pt-1"},
			{"id": "page-2", "access_token": "pt-2", "instagram_business_account": {"id": "ig-9", "username": "brand", "profile_picture_url": "https://pic"}}
		]}`))
	}))
	defer srv.Close()

	account, err := newTestClient(t, srv).DiscoverBusinessAccount(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "ig-9", account.ID)
	assert.Equal(t, "brand", account.Username)
	assert.Equal(t, "page-2", account.PageID)
	assert.Equal(t, "pt-2", account.PageToken)
}

func TestDiscoverBusinessAccountNoneLinked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"id": "page-1", "access_token": "pt-1"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).DiscoverBusinessAccount(context.Background(), "user-token")
	require.Error(t, err)

	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierr.ErrorTypeNotFound, apiErr.Type)
}

func TestPublishCreatesContainerThenPublishes(t *testing.T) {
	var order []string

	mux := http.NewServeMux()
	mux.HandleFunc("/ig-9/media", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "container")
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://cdn.test/a.jpg", r.PostFormValue("image_url"))
		assert.Equal(t, "hello world", r.PostFormValue("caption"))
		w.Write([]byte(`{"id": "container-1"}`))
	})
	mux.HandleFunc("/ig-9/media_publish", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "publish")
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "container-1", r.PostFormValue("creation_id"))
		w.Write([]byte(`{"id": "media-42"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	mediaID, err := newTestClient(t, srv).Publish(context.Background(),
		"ig-9", "page-token", "https://cdn.test/a.jpg", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "media-42", mediaID)
	assert.Equal(t, []string{"container", "publish"}, order)
}

func TestPublishSurfacesGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid image URL"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Publish(context.Background(),
		"ig-9", "page-token", "not-a-url", "caption")
	require.Error(t, err)

	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid image URL", apiErr.Message)
}
