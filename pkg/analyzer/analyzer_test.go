package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igreposter/pkg/models"
)

// captioned builds a photo post with a caption long enough to dodge the
// short-caption quote bucket.
func captioned(caption string) models.NormalizedPost {
	return models.NormalizedPost{
		ImageURL: "https://cdn.test/p.jpg",
		Caption:  caption,
	}
}

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		post models.NormalizedPost
		want string
	}{
		{
			name: "video wins over everything",
			post: models.NormalizedPost{IsVideo: true, Caption: "big sale on our new product line today everyone come see"},
			want: BucketVideo,
		},
		{
			name: "product keywords",
			post: captioned("our new product just dropped and we could not be more excited"),
			want: BucketProduct,
		},
		{
			name: "quote keyword",
			post: captioned("monday motivation to keep you going through the whole long week"),
			want: BucketQuotes,
		},
		{
			name: "short caption is quotes",
			post: captioned("less than ten words here"),
			want: BucketQuotes,
		},
		{
			name: "behind the scenes",
			post: captioned("a look behind the curtain at how we put this together every day"),
			want: BucketBehind,
		},
		{
			name: "user generated via credit",
			post: captioned("amazing shot via one of our wonderful community members this weekend"),
			want: BucketUGC,
		},
		{
			name: "default lifestyle",
			post: captioned("sunday morning coffee on the balcony watching the city slowly wake up"),
			want: BucketLifestyle,
		},
		{
			name: "product beats behind when both match",
			post: captioned("behind the scenes of our product shoot with the whole team today"),
			want: BucketProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.post))
		})
	}
}

func TestContentTypesDistribution(t *testing.T) {
	posts := []models.NormalizedPost{
		{ImageURL: "x", IsVideo: true},
		{ImageURL: "x", IsVideo: true},
		{ImageURL: "x", IsVideo: true},
		captioned("sunday morning coffee on the balcony watching the city slowly wake up"),
	}

	buckets := ContentTypes(posts)
	require.Len(t, buckets, 2)
	assert.Equal(t, BucketVideo, buckets[0].Label)
	assert.Equal(t, 75, buckets[0].Percentage)
	assert.Equal(t, 3, buckets[0].Count)
	assert.Equal(t, BucketLifestyle, buckets[1].Label)
	assert.Equal(t, 25, buckets[1].Percentage)

	for i := 1; i < len(buckets); i++ {
		assert.GreaterOrEqual(t, buckets[i-1].Percentage, buckets[i].Percentage)
	}
}

func TestContentTypesEmptySet(t *testing.T) {
	buckets := ContentTypes(nil)
	require.Len(t, buckets, 1)
	assert.Equal(t, BucketMixed, buckets[0].Label)
	assert.Equal(t, 100, buckets[0].Percentage)
	assert.Zero(t, buckets[0].Count)
}

func TestTopHashtagsRanking(t *testing.T) {
	posts := []models.NormalizedPost{
		captioned("spring looks #Style #OOTD"),
		captioned("another day another fit #style"),
		captioned("weekend wear #ootd #STYLE"),
	}

	tags := TopHashtags(posts, 8)
	assert.Equal(t, []string{"#style", "#ootd"}, tags)
}

func TestTopHashtagsTieKeepsFirstSeen(t *testing.T) {
	posts := []models.NormalizedPost{
		captioned("#zebra #apple"),
		captioned("#zebra #apple"),
	}

	tags := TopHashtags(posts, 8)
	assert.Equal(t, []string{"#zebra", "#apple"}, tags)
}

func TestTopHashtagsLimit(t *testing.T) {
	posts := []models.NormalizedPost{
		captioned("#a #b #c #d #e #f #g #h #i #j"),
	}

	tags := TopHashtags(posts, 8)
	assert.Len(t, tags, 8)
}

func TestPostsPerWeek(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	week := int64(7 * 86400)

	// 4 posts over exactly 2 weeks.
	posts := []models.NormalizedPost{
		{ImageURL: "x", TakenAt: base},
		{ImageURL: "x", TakenAt: base + week},
		{ImageURL: "x", TakenAt: base + week + 86400},
		{ImageURL: "x", TakenAt: base + 2*week},
	}
	assert.InDelta(t, 2.0, PostsPerWeek(posts), 0.001)

	assert.Zero(t, PostsPerWeek(nil))
	assert.Zero(t, PostsPerWeek([]models.NormalizedPost{{ImageURL: "x", TakenAt: base}}))
	assert.Zero(t, PostsPerWeek([]models.NormalizedPost{
		{ImageURL: "x", TakenAt: base},
		{ImageURL: "x", TakenAt: base},
	}), "identical timestamps give no span")
}

func TestBestPostingHour(t *testing.T) {
	at := func(hour int) models.NormalizedPost {
		return models.NormalizedPost{
			ImageURL: "x",
			TakenAt:  time.Date(2025, 1, 1, hour, 30, 0, 0, time.UTC).Unix(),
		}
	}

	posts := []models.NormalizedPost{at(9), at(14), at(14), at(21)}
	assert.Equal(t, 14, BestPostingHour(posts))

	// Tie goes to the lower hour.
	posts = []models.NormalizedPost{at(8), at(8), at(20), at(20)}
	assert.Equal(t, 8, BestPostingHour(posts))

	assert.Equal(t, DefaultBestHour, BestPostingHour(nil))
}

func TestAnalyzeEmptyProfile(t *testing.T) {
	analysis := Analyze("emptyuser", nil)

	assert.Equal(t, "emptyuser", analysis.Username)
	require.Len(t, analysis.ContentTypes, 1)
	assert.Equal(t, BucketMixed, analysis.ContentTypes[0].Label)
	assert.Empty(t, analysis.TopHashtags)
	assert.Zero(t, analysis.AvgPostsPerWeek)
	assert.Equal(t, DefaultBestHour, analysis.BestPostingHour)
	assert.Zero(t, analysis.PostCount)
}
