// Package store persists the dashboard's state: scheduled posts, schedule
// settings, the automation source profile and connected accounts. Two
// backends exist: an in-memory store with an optional JSON snapshot file,
// and a Postgres store.
package store

import (
	"context"
	"fmt"
	"time"

	"igreposter/pkg/config"
	"igreposter/pkg/logger"
	"igreposter/pkg/models"
)

// PostUpdate carries the mutable fields of a scheduled post. Nil means
// leave unchanged.
type PostUpdate struct {
	ImageURL      *string    `json:"imageUrl"`
	Caption       *string    `json:"caption"`
	ScheduledDate *time.Time `json:"scheduledDate"`
	Status        *string    `json:"status"`
}

// Store is the persistence interface shared by both backends.
type Store interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, update PostUpdate) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error

	GetScheduleSettings(ctx context.Context) (*models.ScheduleSettings, error)
	SaveScheduleSettings(ctx context.Context, settings models.ScheduleSettings) (*models.ScheduleSettings, error)

	// GetSourceProfile returns nil when no source profile has been
	// confirmed yet. SaveSourceProfile replaces the slot wholesale.
	GetSourceProfile(ctx context.Context) (*models.SourceProfileState, error)
	SaveSourceProfile(ctx context.Context, state models.SourceProfileState) error

	ListAccounts(ctx context.Context) ([]models.ConnectedAccount, error)
	GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error)
	SaveAccount(ctx context.Context, account models.ConnectedAccount) (*models.ConnectedAccount, error)
	DeleteAccount(ctx context.Context, id string) error

	Close() error
}

// New creates the configured backend.
func New(cfg config.StoreConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.SnapshotFile, log)
	case "postgres":
		return NewPostgresStore(cfg, log)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
