// Package models defines the canonical data types shared across the
// service: the normalized source profile representation, content analysis
// results, and the dashboard's persisted records.
package models

import "time"

// Profile is the canonical representation of a source Instagram profile,
// independent of which scraper backend produced it.
type Profile struct {
	Username       string           `json:"username"`
	FullName       string           `json:"fullName"`
	Bio            string           `json:"bio"`
	ProfilePicURL  string           `json:"profilePicUrl"`
	FollowersCount int              `json:"followersCount"`
	FollowingCount int              `json:"followingCount"`
	PostsCount     int              `json:"postsCount"`
	RecentPosts    []NormalizedPost `json:"recentPosts"`
}

// NormalizedPost is one post after normalization. Posts without a
// resolvable image URL never make it into this form.
type NormalizedPost struct {
	ImageURL     string `json:"imageUrl"`
	Caption      string `json:"caption"`
	TakenAt      int64  `json:"takenAt"` // epoch seconds
	LikeCount    int    `json:"likeCount"`
	CommentCount int    `json:"commentCount"`
	IsVideo      bool   `json:"isVideo"`
}

// ContentTypeBucket is one slice of the content-type histogram.
type ContentTypeBucket struct {
	Label      string `json:"type"`
	Percentage int    `json:"percentage"`
	Count      int    `json:"examples"`
}

// ContentAnalysis summarizes a source profile's posting behavior.
type ContentAnalysis struct {
	Username        string              `json:"username"`
	ContentTypes    []ContentTypeBucket `json:"contentTypes"`
	TopHashtags     []string            `json:"hashtags"`
	AvgPostsPerWeek float64             `json:"avgPostsPerWeek"`
	BestPostingHour int                 `json:"bestPostingHour"`
	PostCount       int                 `json:"postCount"`
}

// SourceProfileState is the single persisted automation slot: the
// confirmed source profile, its full fetched post set (used for queue
// sampling, distinct from the preview-bounded Profile.RecentPosts), and
// the latest analysis. It is replaced wholesale on every search/confirm
// cycle; there is no incremental merge.
type SourceProfileState struct {
	Profile        Profile          `json:"profile"`
	Posts          []NormalizedPost `json:"posts"`
	Confirmed      bool             `json:"confirmed"`
	Enabled        bool             `json:"enabled"`
	ProfileURL     string           `json:"profileUrl"`
	Analysis       *ContentAnalysis `json:"analysis,omitempty"`
	LastAnalyzedAt *time.Time       `json:"lastAnalyzedAt,omitempty"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Post is a scheduled dashboard post.
type Post struct {
	ID            string    `json:"id"`
	ImageURL      string    `json:"imageUrl"`
	Caption       string    `json:"caption"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Post statuses.
const (
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

// TimeSlot is one publishing time within a scheduled day.
type TimeSlot struct {
	ID   string `json:"id"`
	Time string `json:"time"` // "HH:MM"
}

// ScheduleSettings holds the user's posting schedule configuration.
type ScheduleSettings struct {
	ID           string     `json:"id"`
	SelectedDays []string   `json:"selectedDays"`
	PostsPerDay  int        `json:"postsPerDay"`
	TimeSlots    []TimeSlot `json:"timeSlots"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ConnectedAccount is a linked Instagram Business account.
type ConnectedAccount struct {
	ID              string     `json:"id"`
	Platform        string     `json:"platform"`
	Username        string     `json:"username"`
	AccountID       string     `json:"accountId"`
	AccessToken     string     `json:"-"`
	RefreshToken    string     `json:"-"`
	ProfileURL      string     `json:"profileUrl"`
	ProfileImageURL string     `json:"profileImageUrl"`
	IsActive        bool       `json:"isActive"`
	ConnectedAt     time.Time  `json:"connectedAt"`
	LastSyncedAt    *time.Time `json:"lastSyncedAt,omitempty"`
}

// QueuedPost is one entry of the on-demand repost queue. IDs are
// sequential within a single queue build; the queue itself is a preview
// and is never persisted.
type QueuedPost struct {
	ID           int       `json:"id"`
	ImageURL     string    `json:"imageUrl"`
	Caption      string    `json:"caption"`
	IsVideo      bool      `json:"isVideo"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

// StyleProfile is the result of the language-model style analysis of a
// source profile's captions.
type StyleProfile struct {
	Tone         string   `json:"tone"`
	CommonWords  []string `json:"commonWords"`
	AvgLength    int      `json:"avgLength"`
	EmojiUsage   string   `json:"emojiUsage"`
	HashtagStyle string   `json:"hashtagStyle"`
}
