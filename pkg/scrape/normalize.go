package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"igreposter/pkg/apierr"
	"igreposter/pkg/models"
)

// usernamePattern matches valid Instagram usernames: letters, digits,
// periods and underscores, at most 30 characters.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

// UsernameFromInput extracts a username from raw user input, which may be
// a bare handle, an @handle, or a full profile URL. Invalid input returns
// ErrInvalidInput before any network call happens.
func UsernameFromInput(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", apierr.Invalid("username is required")
	}

	if strings.Contains(candidate, "/") {
		parsed, err := url.Parse(candidate)
		if err != nil {
			return "", apierr.Invalid(fmt.Sprintf("cannot parse profile URL: %v", err))
		}
		segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		candidate = segments[len(segments)-1]
	}

	candidate = strings.TrimPrefix(candidate, "@")
	if !usernamePattern.MatchString(candidate) {
		return "", apierr.Invalid(fmt.Sprintf("invalid username %q", candidate))
	}
	return candidate, nil
}

// imagePaths lists the image field candidates in priority order. A post
// without any of them is dropped during normalization.
var imagePaths = []string{
	"display_url",
	"thumbnail_url",
	"image_url",
	"url",
}

// NormalizePost converts one raw backend post object into the canonical
// shape. The second return is false when the post has no usable image URL.
// media_url is the lowest-priority fallback, after the image_versions2
// candidate list.
func NormalizePost(raw map[string]any, now time.Time) (models.NormalizedPost, bool) {
	image := firstString(raw, "", imagePaths...)
	if image == "" {
		image = candidateImage(raw)
	}
	if image == "" {
		image, _ = raw["media_url"].(string)
	}
	if image == "" {
		return models.NormalizedPost{}, false
	}

	return models.NormalizedPost{
		ImageURL:     image,
		Caption:      extractCaption(raw),
		TakenAt:      extractTimestamp(raw, now),
		LikeCount:    firstInt(raw, "like_count", "edge_liked_by.count", "edge_media_preview_like.count"),
		CommentCount: firstInt(raw, "comment_count", "edge_media_to_comment.count"),
		IsVideo:      extractIsVideo(raw),
	}, true
}

// NormalizePosts normalizes a raw post list, dropping imageless entries
// and capping the result at limit. A limit of zero or less means no cap.
func NormalizePosts(raw []map[string]any, limit int, now time.Time) []models.NormalizedPost {
	posts := make([]models.NormalizedPost, 0, len(raw))
	for _, item := range raw {
		post, ok := NormalizePost(item, now)
		if !ok {
			continue
		}
		posts = append(posts, post)
		if limit > 0 && len(posts) >= limit {
			break
		}
	}
	return posts
}

// candidateImage digs into the image_versions2 candidate list used by the
// mobile-shaped payloads.
func candidateImage(raw map[string]any) string {
	candidates, ok := lookup(raw, "image_versions2.candidates").([]any)
	if !ok || len(candidates) == 0 {
		return ""
	}
	first, ok := candidates[0].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := first["url"].(string)
	return s
}

func extractCaption(raw map[string]any) string {
	if s, ok := lookup(raw, "caption.text").(string); ok && s != "" {
		return s
	}
	if s, ok := raw["caption"].(string); ok && s != "" {
		return s
	}
	if edges, ok := lookup(raw, "edge_media_to_caption.edges").([]any); ok && len(edges) > 0 {
		if edge, ok := edges[0].(map[string]any); ok {
			if s, ok := lookup(edge, "node.text").(string); ok {
				return s
			}
		}
	}
	return ""
}

func extractTimestamp(raw map[string]any, now time.Time) int64 {
	if n, ok := asInt(raw["taken_at"]); ok && n > 0 {
		return int64(n)
	}
	if n, ok := asInt(raw["taken_at_timestamp"]); ok && n > 0 {
		return int64(n)
	}
	if s, ok := raw["timestamp"].(string); ok && s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Unix()
		}
	}
	return now.Unix()
}

func extractIsVideo(raw map[string]any) bool {
	if b, ok := raw["is_video"].(bool); ok {
		return b
	}
	if s, ok := raw["media_type"].(string); ok {
		return s == "GraphVideo" || strings.EqualFold(s, "video")
	}
	if n, ok := asInt(raw["media_type"]); ok {
		return n == 2
	}
	return false
}
