// Package queue builds the on-demand repost queue: a random sample of the
// source profile's posts spread over the coming days.
package queue

import (
	"math/rand"
	"time"

	"igreposter/pkg/models"
)

// Builder samples posts into a repost queue. The zero source and clock
// default to math/rand and time.Now; tests inject both.
type Builder struct {
	rng *rand.Rand
	now func() time.Time
}

// Option customizes a builder.
type Option func(*Builder)

// WithRand sets the random source.
func WithRand(rng *rand.Rand) Option {
	return func(b *Builder) { b.rng = rng }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a queue builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build selects up to limit posts uniformly at random from the source set
// and schedules entry i for now plus i+1 days. The source slice is never
// mutated. An empty source yields an empty queue, never an error.
func (b *Builder) Build(posts []models.NormalizedPost, limit int) []models.QueuedPost {
	if limit <= 0 || len(posts) == 0 {
		return []models.QueuedPost{}
	}

	shuffled := make([]models.NormalizedPost, len(posts))
	copy(shuffled, posts)
	b.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if limit > len(shuffled) {
		limit = len(shuffled)
	}

	now := b.now()
	queued := make([]models.QueuedPost, limit)
	for i := 0; i < limit; i++ {
		queued[i] = models.QueuedPost{
			ID:           i + 1,
			ImageURL:     shuffled[i].ImageURL,
			Caption:      shuffled[i].Caption,
			IsVideo:      shuffled[i].IsVideo,
			ScheduledFor: now.AddDate(0, 0, i+1),
		}
	}
	return queued
}
