package scrape

import (
	"strings"
)

// PartialProfile holds whatever profile fields one backend response
// yielded. Zero values mean the backend did not report the field.
type PartialProfile struct {
	Username       string
	FullName       string
	Bio            string
	ProfilePicURL  string
	FollowersCount int
	FollowingCount int
	PostsCount     int
}

// merge folds another extraction into p. Existing values win over zero
// values so a sparse posts payload never clobbers a richer profile payload.
func (p *PartialProfile) merge(other PartialProfile) {
	if p.Username == "" {
		p.Username = other.Username
	}
	if p.FullName == "" {
		p.FullName = other.FullName
	}
	if p.Bio == "" {
		p.Bio = other.Bio
	}
	if p.ProfilePicURL == "" {
		p.ProfilePicURL = other.ProfilePicURL
	}
	if p.FollowersCount == 0 {
		p.FollowersCount = other.FollowersCount
	}
	if p.FollowingCount == 0 {
		p.FollowingCount = other.FollowingCount
	}
	if p.PostsCount == 0 {
		p.PostsCount = other.PostsCount
	}
}

// Adapter describes one scraper backend: its endpoints, how the username
// travels, and how to pull fields out of its particular response shape.
type Adapter struct {
	Name            string
	Host            string
	ProfileEndpoint string
	PostsEndpoint   string
	UsernameParam   string
	PostsViaForm    bool
	ExtractProfile  func(raw map[string]any, username string) PartialProfile
	ExtractPosts    func(raw map[string]any) []map[string]any
}

// DefaultAdapters returns the backend table in fallback priority order.
// Order is significant: the coordinator walks the slice front to back.
func DefaultAdapters() []Adapter {
	return []Adapter{
		{
			Name:            "Instagram API 2023 (mrngstar)",
			Host:            "instagram-api-20231.p.rapidapi.com",
			ProfileEndpoint: "/user",
			PostsEndpoint:   "/user/posts",
			UsernameParam:   "username",
			ExtractProfile: func(raw map[string]any, username string) PartialProfile {
				user := firstMap(raw, "user", "data.user")
				if user == nil {
					user = raw
				}
				return PartialProfile{
					Username:       firstString(user, username, "username"),
					FullName:       firstString(user, "", "full_name", "fullName"),
					Bio:            firstString(user, "", "biography", "bio"),
					ProfilePicURL:  firstString(user, "", "profile_pic_url_hd", "profile_pic_url", "hd_profile_pic_url_info.url"),
					FollowersCount: firstInt(user, "follower_count", "edge_followed_by.count"),
					FollowingCount: firstInt(user, "following_count", "edge_follow.count"),
					PostsCount:     firstInt(user, "media_count", "edge_owner_to_timeline_media.count"),
				}
			},
			ExtractPosts: func(raw map[string]any) []map[string]any {
				return firstList(raw, "items", "data.items", "posts", "data")
			},
		},
		{
			Name:            "Instagram Scraper Stable API",
			Host:            "instagram-scraper-stable-api.p.rapidapi.com",
			ProfileEndpoint: "/ig_get_fb_profile_hover.php",
			PostsEndpoint:   "/get_ig_user_reels.php",
			UsernameParam:   "username_or_url",
			PostsViaForm:    true,
			ExtractProfile: func(raw map[string]any, username string) PartialProfile {
				user := firstMap(raw, "user_data", "user", "data.user", "data")
				if user == nil {
					user = raw
				}
				return PartialProfile{
					Username:       firstString(user, username, "username"),
					FullName:       firstString(user, "", "full_name", "name"),
					Bio:            firstString(user, "", "biography", "description"),
					ProfilePicURL:  firstString(user, "", "profile_pic_url", "profile_picture", "profile_pic"),
					FollowersCount: firstInt(user, "follower_count", "followers", "followers_count"),
					FollowingCount: firstInt(user, "following_count", "following", "followings_count"),
					PostsCount:     firstInt(user, "media_count", "posts_count", "post_count"),
				}
			},
			ExtractPosts: func(raw map[string]any) []map[string]any {
				return firstList(raw, "medias", "reels", "data.items", "items", "data")
			},
		},
		{
			Name:            "Instagram Scraper 2024",
			Host:            "instagram-scraper-20243.p.rapidapi.com",
			ProfileEndpoint: "/v1/info",
			PostsEndpoint:   "/v1/posts",
			UsernameParam:   "username_or_id_or_url",
			ExtractProfile: func(raw map[string]any, username string) PartialProfile {
				user := firstMap(raw, "data", "user")
				if user == nil {
					user = raw
				}
				return PartialProfile{
					Username:       firstString(user, username, "username"),
					FullName:       firstString(user, "", "full_name"),
					Bio:            firstString(user, "", "biography"),
					ProfilePicURL:  firstString(user, "", "profile_pic_url_hd", "profile_pic_url"),
					FollowersCount: firstInt(user, "follower_count"),
					FollowingCount: firstInt(user, "following_count"),
					PostsCount:     firstInt(user, "media_count"),
				}
			},
			ExtractPosts: func(raw map[string]any) []map[string]any {
				return firstList(raw, "data.items", "items", "data.posts", "posts")
			},
		},
		{
			Name:            "Instagram API Fast & Reliable",
			Host:            "instagram-api-fast-reliable-data-scraper.p.rapidapi.com",
			ProfileEndpoint: "/user/info",
			PostsEndpoint:   "/user/posts",
			UsernameParam:   "username",
			ExtractProfile: func(raw map[string]any, username string) PartialProfile {
				user := firstMap(raw, "data", "user")
				if user == nil {
					user = raw
				}
				return PartialProfile{
					Username:       firstString(user, username, "username"),
					FullName:       firstString(user, "", "full_name"),
					Bio:            firstString(user, "", "biography"),
					ProfilePicURL:  firstString(user, "", "profile_pic_url_hd", "profile_pic_url"),
					FollowersCount: firstInt(user, "follower_count"),
					FollowingCount: firstInt(user, "following_count"),
					PostsCount:     firstInt(user, "media_count"),
				}
			},
			ExtractPosts: func(raw map[string]any) []map[string]any {
				return firstList(raw, "data.items", "items", "posts")
			},
		},
	}
}

// lookup walks a dot-separated path through nested maps. A missing segment
// returns nil.
func lookup(m map[string]any, path string) any {
	var current any = m
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = node[key]
		if !ok {
			return nil
		}
	}
	return current
}

// firstString returns the first non-empty string found at the given paths,
// or fallback when none match.
func firstString(m map[string]any, fallback string, paths ...string) string {
	for _, path := range paths {
		if s, ok := lookup(m, path).(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// firstInt returns the first numeric value found at the given paths.
// Backends report counts as JSON numbers or numeric strings.
func firstInt(m map[string]any, paths ...string) int {
	for _, path := range paths {
		if n, ok := asInt(lookup(m, path)); ok {
			return n
		}
	}
	return 0
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		total := 0
		if n == "" {
			return 0, false
		}
		for _, r := range n {
			if r < '0' || r > '9' {
				return 0, false
			}
			total = total*10 + int(r-'0')
		}
		return total, true
	default:
		return 0, false
	}
}

// firstMap returns the first nested object found at the given paths.
func firstMap(m map[string]any, paths ...string) map[string]any {
	for _, path := range paths {
		if node, ok := lookup(m, path).(map[string]any); ok {
			return node
		}
	}
	return nil
}

// firstList returns the first list of objects found at the given paths.
// Non-object entries are skipped.
func firstList(m map[string]any, paths ...string) []map[string]any {
	for _, path := range paths {
		items, ok := lookup(m, path).([]any)
		if !ok || len(items) == 0 {
			continue
		}
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if node, ok := item.(map[string]any); ok {
				out = append(out, node)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
