package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igreposter/pkg/apierr"
	"igreposter/pkg/logger"
	"igreposter/pkg/models"
)

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error"})
	require.NoError(t, err)
	return log
}

func TestMemoryStorePostCRUD(t *testing.T) {
	s, err := NewMemoryStore("", newTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := s.CreatePost(ctx, models.Post{
		ImageURL:      "https://cdn.test/a.jpg",
		Caption:       "first post",
		ScheduledDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.PostStatusScheduled, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "first post", got.Caption)

	newCaption := "updated caption"
	newStatus := models.PostStatusPublished
	updated, err := s.UpdatePost(ctx, created.ID, PostUpdate{
		Caption: &newCaption,
		Status:  &newStatus,
	})
	require.NoError(t, err)
	assert.Equal(t, "updated caption", updated.Caption)
	assert.Equal(t, models.PostStatusPublished, updated.Status)
	assert.Equal(t, "https://cdn.test/a.jpg", updated.ImageURL, "unset fields stay")

	require.NoError(t, s.DeletePost(ctx, created.ID))
	_, err = s.GetPost(ctx, created.ID)
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
	assert.True(t, errors.Is(s.DeletePost(ctx, created.ID), apierr.ErrNotFound))
}

func TestMemoryStoreListPostsSorted(t *testing.T) {
	s, err := NewMemoryStore("", newTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	_, err = s.CreatePost(ctx, models.Post{ImageURL: "x", Caption: "later", ScheduledDate: base.Add(48 * time.Hour)})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, models.Post{ImageURL: "x", Caption: "sooner", ScheduledDate: base})
	require.NoError(t, err)

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "sooner", posts[0].Caption)
	assert.Equal(t, "later", posts[1].Caption)
}

func TestMemoryStoreScheduleSettingsDefaults(t *testing.T) {
	s, err := NewMemoryStore("", newTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	settings, err := s.GetScheduleSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settings.PostsPerDay)
	assert.NotEmpty(t, settings.SelectedDays)
	assert.NotEmpty(t, settings.TimeSlots)

	saved, err := s.SaveScheduleSettings(ctx, models.ScheduleSettings{
		SelectedDays: []string{"tuesday"},
		PostsPerDay:  3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	settings, err = s.GetScheduleSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.PostsPerDay)
	assert.Equal(t, []string{"tuesday"}, settings.SelectedDays)
}

func TestMemoryStoreSourceProfileReplacedWholesale(t *testing.T) {
	s, err := NewMemoryStore("", newTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	state, err := s.GetSourceProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, state, "no source profile before the first save")

	first := models.SourceProfileState{
		Profile: models.Profile{Username: "firstuser", FollowersCount: 10},
		Posts: []models.NormalizedPost{
			{ImageURL: "https://cdn.test/1.jpg"},
			{ImageURL: "https://cdn.test/2.jpg"},
		},
		Confirmed: true,
	}
	require.NoError(t, s.SaveSourceProfile(ctx, first))

	second := models.SourceProfileState{
		Profile: models.Profile{Username: "seconduser", FollowersCount: 99},
		Posts:   []models.NormalizedPost{{ImageURL: "https://cdn.test/9.jpg"}},
	}
	require.NoError(t, s.SaveSourceProfile(ctx, second))

	state, err = s.GetSourceProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "seconduser", state.Profile.Username)
	require.Len(t, state.Posts, 1, "save replaces the slot, no merge")
	assert.False(t, state.Confirmed)
	assert.False(t, state.UpdatedAt.IsZero())
}

func TestMemoryStoreSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "snapshot.json")
	ctx := context.Background()

	s, err := NewMemoryStore(path, newTestLogger(t))
	require.NoError(t, err)

	created, err := s.CreatePost(ctx, models.Post{
		ImageURL:      "https://cdn.test/a.jpg",
		Caption:       "survives restarts",
		ScheduledDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, s.SaveSourceProfile(ctx, models.SourceProfileState{
		Profile:   models.Profile{Username: "snapuser"},
		Confirmed: true,
	}))

	account, err := s.SaveAccount(ctx, models.ConnectedAccount{
		Platform: "instagram",
		Username: "brand",
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	restored, err := NewMemoryStore(path, newTestLogger(t))
	require.NoError(t, err)

	post, err := restored.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "survives restarts", post.Caption)

	state, err := restored.GetSourceProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "snapuser", state.Profile.Username)
	assert.True(t, state.Confirmed)

	got, err := restored.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "brand", got.Username)
}

func TestMemoryStoreMissingSnapshotIsFine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	s, err := NewMemoryStore(path, newTestLogger(t))
	require.NoError(t, err)

	posts, err := s.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestMemoryStoreCorruptSnapshotFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewMemoryStore(path, newTestLogger(t))
	assert.Error(t, err)
}

func TestMemoryStoreAccountCRUD(t *testing.T) {
	s, err := NewMemoryStore("", newTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	account, err := s.SaveAccount(ctx, models.ConnectedAccount{
		Platform:    "instagram",
		Username:    "brand",
		AccessToken: "secret-token",
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.False(t, account.ConnectedAt.IsZero())

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, s.DeleteAccount(ctx, account.ID))
	assert.True(t, errors.Is(s.DeleteAccount(ctx, account.ID), apierr.ErrNotFound))
}
