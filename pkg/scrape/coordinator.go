package scrape

import (
	"context"
	"net/url"
	"time"

	"igreposter/pkg/apierr"
	"igreposter/pkg/logger"
	"igreposter/pkg/models"
)

// Coordinator walks the adapter table in priority order until one backend
// yields a valid profile. A backend that answers 200 with empty data
// counts as a failure and the next backend is tried.
type Coordinator struct {
	client   *Client
	adapters []Adapter
	preview  int
	logger   logger.Logger
	now      func() time.Time
}

// CoordinatorOption customizes a coordinator.
type CoordinatorOption func(*Coordinator)

// WithAdapters replaces the default backend table. Tests use it to point
// the coordinator at local servers.
func WithAdapters(adapters []Adapter) CoordinatorOption {
	return func(c *Coordinator) { c.adapters = adapters }
}

// WithPreviewCount overrides how many normalized posts a profile carries.
func WithPreviewCount(n int) CoordinatorOption {
	return func(c *Coordinator) { c.preview = n }
}

// WithClock overrides the timestamp source for normalization.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a coordinator over the default adapter table.
func NewCoordinator(client *Client, log logger.Logger, opts ...CoordinatorOption) *Coordinator {
	if log == nil {
		log = logger.GetLogger()
	}
	c := &Coordinator{
		client:   client,
		adapters: DefaultAdapters(),
		preview:  12,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchProfile resolves a username to a profile with a preview of recent
// posts. It returns ErrConfigurationMissing when no API key is set and
// ErrNoDataAvailable when every backend fails or returns empty data.
func (c *Coordinator) FetchProfile(ctx context.Context, username string) (*models.Profile, error) {
	if c.client.apiKey == "" {
		return nil, apierr.MissingConfig("RAPIDAPI_KEY")
	}

	var lastErr error
	for _, adapter := range c.adapters {
		profile, err := c.tryAdapter(ctx, adapter, username)
		if err != nil {
			lastErr = err
			c.logger.WarnWithFields("scraper backend failed, trying next", map[string]interface{}{
				"backend":  adapter.Name,
				"username": username,
				"error":    err.Error(),
			})
			continue
		}
		c.logger.InfoWithFields("profile resolved", map[string]interface{}{
			"backend":   adapter.Name,
			"username":  username,
			"followers": profile.FollowersCount,
			"posts":     len(profile.RecentPosts),
		})
		return profile, nil
	}

	return nil, apierr.NoData(lastErr)
}

// FetchPosts resolves the post list for a username without the profile
// metadata. All backends failing yields an empty slice, not an error.
func (c *Coordinator) FetchPosts(ctx context.Context, username string) ([]models.NormalizedPost, error) {
	if c.client.apiKey == "" {
		return nil, apierr.MissingConfig("RAPIDAPI_KEY")
	}

	for _, adapter := range c.adapters {
		if adapter.PostsEndpoint == "" {
			continue
		}
		raw, err := c.fetchPosts(ctx, adapter, username)
		if err != nil {
			c.logger.DebugWithFields("post fetch failed, trying next backend", map[string]interface{}{
				"backend":  adapter.Name,
				"username": username,
				"error":    err.Error(),
			})
			continue
		}
		items := adapter.ExtractPosts(raw)
		if len(items) == 0 {
			continue
		}
		return NormalizePosts(items, 0, c.now()), nil
	}

	return []models.NormalizedPost{}, nil
}

func (c *Coordinator) tryAdapter(ctx context.Context, adapter Adapter, username string) (*models.Profile, error) {
	partial := PartialProfile{Username: username}
	var rawPosts []map[string]any
	var lastErr error

	if adapter.ProfileEndpoint != "" {
		query := url.Values{adapter.UsernameParam: {username}}
		data, err := c.client.GetJSON(ctx, adapter.Host, adapter.ProfileEndpoint, query)
		if err != nil {
			lastErr = err
		} else {
			partial.merge(adapter.ExtractProfile(data, username))
		}
	}

	if adapter.PostsEndpoint != "" {
		data, err := c.fetchPosts(ctx, adapter, username)
		if err != nil {
			lastErr = err
		} else {
			partial.merge(adapter.ExtractProfile(data, username))
			rawPosts = adapter.ExtractPosts(data)
		}
	}

	recent := NormalizePosts(rawPosts, c.preview, c.now())

	// Empty data from a healthy endpoint is still a miss.
	if partial.FollowersCount == 0 && partial.PostsCount == 0 && len(recent) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &apierr.Error{
			Type:    apierr.ErrorTypeParsing,
			Message: "backend returned no usable profile data",
		}
	}

	postsCount := partial.PostsCount
	if postsCount == 0 {
		postsCount = len(recent)
	}

	return &models.Profile{
		Username:       partial.Username,
		FullName:       partial.FullName,
		Bio:            partial.Bio,
		ProfilePicURL:  partial.ProfilePicURL,
		FollowersCount: partial.FollowersCount,
		FollowingCount: partial.FollowingCount,
		PostsCount:     postsCount,
		RecentPosts:    recent,
	}, nil
}

func (c *Coordinator) fetchPosts(ctx context.Context, adapter Adapter, username string) (map[string]any, error) {
	if adapter.PostsViaForm {
		// Form-encoded posts endpoints take the bare username regardless of
		// the adapter's query parameter name.
		form := url.Values{"username": {username}}
		return c.client.PostFormJSON(ctx, adapter.Host, adapter.PostsEndpoint, form)
	}
	query := url.Values{adapter.UsernameParam: {username}}
	return c.client.GetJSON(ctx, adapter.Host, adapter.PostsEndpoint, query)
}
