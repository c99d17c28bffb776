// Package analyzer derives posting statistics from a set of normalized
// posts: content type distribution, top hashtags, cadence and the best
// posting hour. All functions are pure.
package analyzer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"igreposter/pkg/models"
)

// Bucket labels in classification precedence order.
const (
	BucketVideo     = "Video Content"
	BucketProduct   = "Product Photos"
	BucketQuotes    = "Quotes & Text"
	BucketBehind    = "Behind the Scenes"
	BucketUGC       = "User Generated"
	BucketLifestyle = "Lifestyle Shots"
	BucketMixed     = "Mixed Content"
)

// DefaultBestHour is reported when no post carries a usable timestamp.
const DefaultBestHour = 19

var hashtagPattern = regexp.MustCompile(`#\w+`)

// Analyze computes the full content analysis for a username's posts.
func Analyze(username string, posts []models.NormalizedPost) *models.ContentAnalysis {
	return &models.ContentAnalysis{
		Username:        username,
		ContentTypes:    ContentTypes(posts),
		TopHashtags:     TopHashtags(posts, 8),
		AvgPostsPerWeek: PostsPerWeek(posts),
		BestPostingHour: BestPostingHour(posts),
		PostCount:       len(posts),
	}
}

// Classify assigns one post to exactly one bucket. Checks run in fixed
// precedence order; the first match wins.
func Classify(post models.NormalizedPost) string {
	if post.IsVideo {
		return BucketVideo
	}
	caption := strings.ToLower(post.Caption)
	switch {
	case containsAny(caption, "product", "shop", "sale"):
		return BucketProduct
	case containsAny(caption, "quote", "motivation") || wordCount(post.Caption) < 10:
		return BucketQuotes
	case containsAny(caption, "behind", "making", "process"):
		return BucketBehind
	case containsAny(caption, "repost", "credit", "via"):
		return BucketUGC
	default:
		return BucketLifestyle
	}
}

// ContentTypes returns the bucket distribution sorted by descending
// percentage. An empty post set yields a single Mixed Content placeholder.
func ContentTypes(posts []models.NormalizedPost) []models.ContentTypeBucket {
	if len(posts) == 0 {
		return []models.ContentTypeBucket{
			{Label: BucketMixed, Percentage: 100, Count: 0},
		}
	}

	counts := make(map[string]int)
	for _, post := range posts {
		counts[Classify(post)]++
	}

	buckets := make([]models.ContentTypeBucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, models.ContentTypeBucket{
			Label:      label,
			Percentage: int(math.Round(float64(count) / float64(len(posts)) * 100)),
			Count:      count,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Percentage != buckets[j].Percentage {
			return buckets[i].Percentage > buckets[j].Percentage
		}
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

// TopHashtags extracts hashtags from all captions, lowercased, ranked by
// frequency. Ties keep first-seen order. At most limit tags are returned.
func TopHashtags(posts []models.NormalizedPost, limit int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, post := range posts {
		for _, tag := range hashtagPattern.FindAllString(post.Caption, -1) {
			tag = strings.ToLower(tag)
			if _, seen := counts[tag]; !seen {
				firstSeen[tag] = order
				order++
			}
			counts[tag]++
		}
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return firstSeen[tags[i]] < firstSeen[tags[j]]
	})

	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

// PostsPerWeek estimates posting cadence from the timestamp span. It needs
// at least two timestamped posts; otherwise it reports zero. The result is
// rounded to one decimal.
func PostsPerWeek(posts []models.NormalizedPost) float64 {
	var newest, oldest int64
	count := 0
	for _, post := range posts {
		if post.TakenAt <= 0 {
			continue
		}
		if count == 0 {
			newest, oldest = post.TakenAt, post.TakenAt
		} else {
			if post.TakenAt > newest {
				newest = post.TakenAt
			}
			if post.TakenAt < oldest {
				oldest = post.TakenAt
			}
		}
		count++
	}

	if count < 2 || newest == oldest {
		return 0
	}

	weeks := float64(newest-oldest) / 86400 / 7
	return math.Round(float64(len(posts))/weeks*10) / 10
}

// BestPostingHour returns the most frequent posting hour (UTC). Ties go to
// the lower hour. Without usable timestamps it returns DefaultBestHour.
func BestPostingHour(posts []models.NormalizedPost) int {
	var hours [24]int
	seen := false
	for _, post := range posts {
		if post.TakenAt <= 0 {
			continue
		}
		hours[time.Unix(post.TakenAt, 0).UTC().Hour()]++
		seen = true
	}
	if !seen {
		return DefaultBestHour
	}

	best := 0
	for hour := 1; hour < 24; hour++ {
		if hours[hour] > hours[best] {
			best = hour
		}
	}
	return best
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
