package scrape

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igreposter/pkg/apierr"
)

func TestUsernameFromInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare username", input: "natgeo", want: "natgeo"},
		{name: "at prefix", input: "@natgeo", want: "natgeo"},
		{name: "whitespace trimmed", input: "  natgeo  ", want: "natgeo"},
		{name: "profile url", input: "https://instagram.com/natgeo", want: "natgeo"},
		{name: "profile url trailing slash", input: "https://www.instagram.com/natgeo/", want: "natgeo"},
		{name: "dots and underscores", input: "nat.geo_travel", want: "nat.geo_travel"},
		{name: "empty", input: "", wantErr: true},
		{name: "only whitespace", input: "   ", wantErr: true},
		{name: "illegal characters", input: "nat geo!", wantErr: true},
		{name: "too long", input: "a123456789a123456789a123456789x", wantErr: true},
		{name: "thirty chars ok", input: "a123456789a123456789a123456789", want: "a123456789a123456789a123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UsernameFromInput(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apierr.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePostRequiresImage(t *testing.T) {
	now := time.Now()

	_, ok := NormalizePost(map[string]any{"caption": "no image here"}, now)
	assert.False(t, ok, "post without an image URL must be dropped")

	post, ok := NormalizePost(map[string]any{"display_url": "https://cdn.test/a.jpg"}, now)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.test/a.jpg", post.ImageURL)
}

func TestNormalizePostImagePriority(t *testing.T) {
	now := time.Now()

	post, ok := NormalizePost(map[string]any{
		"display_url":   "https://cdn.test/display.jpg",
		"thumbnail_url": "https://cdn.test/thumb.jpg",
	}, now)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.test/display.jpg", post.ImageURL)

	post, ok = NormalizePost(map[string]any{
		"image_versions2": map[string]any{
			"candidates": []any{
				map[string]any{"url": "https://cdn.test/candidate.jpg"},
			},
		},
	}, now)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.test/candidate.jpg", post.ImageURL)

	post, ok = NormalizePost(map[string]any{
		"media_url": "https://cdn.test/media.jpg",
		"image_versions2": map[string]any{
			"candidates": []any{
				map[string]any{"url": "https://cdn.test/candidate.jpg"},
			},
		},
	}, now)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.test/candidate.jpg", post.ImageURL,
		"image_versions2 candidates outrank media_url")

	post, ok = NormalizePost(map[string]any{"media_url": "https://cdn.test/media.jpg"}, now)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.test/media.jpg", post.ImageURL)
}

func TestNormalizePostCaptionShapes(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{
			name: "caption object",
			raw:  map[string]any{"display_url": "https://x/1.jpg", "caption": map[string]any{"text": "from object"}},
			want: "from object",
		},
		{
			name: "caption string",
			raw:  map[string]any{"display_url": "https://x/1.jpg", "caption": "plain string"},
			want: "plain string",
		},
		{
			name: "graph edges",
			raw: map[string]any{
				"display_url": "https://x/1.jpg",
				"edge_media_to_caption": map[string]any{
					"edges": []any{
						map[string]any{"node": map[string]any{"text": "from edges"}},
					},
				},
			},
			want: "from edges",
		},
		{
			name: "no caption",
			raw:  map[string]any{"display_url": "https://x/1.jpg"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, ok := NormalizePost(tt.raw, now)
			require.True(t, ok)
			assert.Equal(t, tt.want, post.Caption)
		})
	}
}

func TestNormalizePostTimestamps(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	post, ok := NormalizePost(map[string]any{
		"display_url": "https://x/1.jpg",
		"taken_at":    float64(1700000000),
	}, now)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), post.TakenAt)

	post, ok = NormalizePost(map[string]any{
		"display_url":        "https://x/1.jpg",
		"taken_at_timestamp": float64(1690000000),
	}, now)
	require.True(t, ok)
	assert.Equal(t, int64(1690000000), post.TakenAt)

	post, ok = NormalizePost(map[string]any{
		"display_url": "https://x/1.jpg",
		"timestamp":   "2024-05-20T08:30:00Z",
	}, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 20, 8, 30, 0, 0, time.UTC).Unix(), post.TakenAt)

	post, ok = NormalizePost(map[string]any{"display_url": "https://x/1.jpg"}, now)
	require.True(t, ok)
	assert.Equal(t, now.Unix(), post.TakenAt, "missing timestamp falls back to now")
}

func TestNormalizePostVideoDetection(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		raw  map[string]any
		want bool
	}{
		{name: "is_video true", raw: map[string]any{"display_url": "https://x/1.jpg", "is_video": true}, want: true},
		{name: "graph type", raw: map[string]any{"display_url": "https://x/1.jpg", "media_type": "GraphVideo"}, want: true},
		{name: "numeric type 2", raw: map[string]any{"display_url": "https://x/1.jpg", "media_type": float64(2)}, want: true},
		{name: "numeric type 1", raw: map[string]any{"display_url": "https://x/1.jpg", "media_type": float64(1)}, want: false},
		{name: "absent", raw: map[string]any{"display_url": "https://x/1.jpg"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, ok := NormalizePost(tt.raw, now)
			require.True(t, ok)
			assert.Equal(t, tt.want, post.IsVideo)
		})
	}
}

func TestNormalizePostsBoundAndOrder(t *testing.T) {
	now := time.Now()
	raw := []map[string]any{
		{"display_url": "https://x/1.jpg"},
		{"caption": "dropped, no image"},
		{"display_url": "https://x/2.jpg"},
		{"display_url": "https://x/3.jpg"},
	}

	posts := NormalizePosts(raw, 2, now)
	require.Len(t, posts, 2)
	assert.Equal(t, "https://x/1.jpg", posts[0].ImageURL)
	assert.Equal(t, "https://x/2.jpg", posts[1].ImageURL, "imageless entries do not consume the cap")

	all := NormalizePosts(raw, 0, now)
	assert.Len(t, all, 3, "zero limit means no cap")
}

func TestNormalizePostIdempotent(t *testing.T) {
	now := time.Now()
	raw := map[string]any{
		"display_url":   "https://x/1.jpg",
		"caption":       map[string]any{"text": "stable"},
		"taken_at":      float64(1700000000),
		"like_count":    float64(33),
		"comment_count": float64(4),
	}

	first, ok := NormalizePost(raw, now)
	require.True(t, ok)
	second, ok := NormalizePost(raw, now)
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, 33, first.LikeCount)
	assert.Equal(t, 4, first.CommentCount)
}
