package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"igreposter/pkg/apierr"
	"igreposter/pkg/logger"
	"igreposter/pkg/models"
)

// snapshot is the on-disk shape of the memory store.
type snapshot struct {
	Posts         []models.Post              `json:"posts"`
	Settings      *models.ScheduleSettings   `json:"settings,omitempty"`
	SourceProfile *models.SourceProfileState `json:"sourceProfile,omitempty"`
	Accounts      []models.ConnectedAccount  `json:"accounts"`
	SavedAt       time.Time                  `json:"savedAt"`
}

// MemoryStore keeps everything in maps guarded by one mutex. When a
// snapshot path is set, every mutation rewrites the file atomically via a
// temp file and rename, and the file is loaded back on startup.
type MemoryStore struct {
	mu            sync.Mutex
	posts         map[string]models.Post
	settings      *models.ScheduleSettings
	sourceProfile *models.SourceProfileState
	accounts      map[string]models.ConnectedAccount
	snapshotPath  string
	logger        logger.Logger
	now           func() time.Time
}

// NewMemoryStore creates a memory store, restoring state from the
// snapshot file if one exists at path. An empty path disables snapshots.
func NewMemoryStore(path string, log logger.Logger) (*MemoryStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &MemoryStore{
		posts:        make(map[string]models.Post),
		accounts:     make(map[string]models.ConnectedAccount),
		snapshotPath: path,
		logger:       log,
		now:          time.Now,
	}
	if path != "" {
		if err := s.restore(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MemoryStore) restore() error {
	data, err := os.ReadFile(s.snapshotPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	for _, post := range snap.Posts {
		s.posts[post.ID] = post
	}
	for _, account := range snap.Accounts {
		s.accounts[account.ID] = account
	}
	s.settings = snap.Settings
	s.sourceProfile = snap.SourceProfile

	s.logger.InfoWithFields("state restored from snapshot", map[string]interface{}{
		"path":     s.snapshotPath,
		"posts":    len(s.posts),
		"accounts": len(s.accounts),
	})
	return nil
}

// persistLocked writes the snapshot. Callers must hold the mutex.
func (s *MemoryStore) persistLocked() {
	if s.snapshotPath == "" {
		return
	}

	snap := snapshot{
		Posts:         s.postsLocked(),
		Settings:      s.settings,
		SourceProfile: s.sourceProfile,
		Accounts:      s.accountsLocked(),
		SavedAt:       s.now(),
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.logger.ErrorWithFields("failed to encode snapshot", map[string]interface{}{"error": err.Error()})
		return
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0o755); err != nil {
		s.logger.ErrorWithFields("failed to create snapshot directory", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.ErrorWithFields("failed to write snapshot", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		s.logger.ErrorWithFields("failed to replace snapshot", map[string]interface{}{"error": err.Error()})
	}
}

func (s *MemoryStore) postsLocked() []models.Post {
	posts := make([]models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ScheduledDate.Before(posts[j].ScheduledDate)
	})
	return posts
}

func (s *MemoryStore) accountsLocked() []models.ConnectedAccount {
	accounts := make([]models.ConnectedAccount, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ConnectedAt.Before(accounts[j].ConnectedAt)
	})
	return accounts
}

func (s *MemoryStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postsLocked(), nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	return &post, nil
}

func (s *MemoryStore) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = uuid.New().String()
	post.CreatedAt = s.now()
	if post.Status == "" {
		post.Status = models.PostStatusScheduled
	}
	s.posts[post.ID] = post
	s.persistLocked()
	return &post, nil
}

func (s *MemoryStore) UpdatePost(ctx context.Context, id string, update PostUpdate) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	if update.ImageURL != nil {
		post.ImageURL = *update.ImageURL
	}
	if update.Caption != nil {
		post.Caption = *update.Caption
	}
	if update.ScheduledDate != nil {
		post.ScheduledDate = *update.ScheduledDate
	}
	if update.Status != nil {
		post.Status = *update.Status
	}
	s.posts[id] = post
	s.persistLocked()
	return &post, nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return apierr.ErrNotFound
	}
	delete(s.posts, id)
	s.persistLocked()
	return nil
}

func (s *MemoryStore) GetScheduleSettings(ctx context.Context) (*models.ScheduleSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		return defaultScheduleSettings(s.now()), nil
	}
	settings := *s.settings
	return &settings, nil
}

func (s *MemoryStore) SaveScheduleSettings(ctx context.Context, settings models.ScheduleSettings) (*models.ScheduleSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	settings.UpdatedAt = s.now()
	s.settings = &settings
	s.persistLocked()
	saved := settings
	return &saved, nil
}

func (s *MemoryStore) GetSourceProfile(ctx context.Context) (*models.SourceProfileState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sourceProfile == nil {
		return nil, nil
	}
	state := *s.sourceProfile
	return &state, nil
}

func (s *MemoryStore) SaveSourceProfile(ctx context.Context, state models.SourceProfileState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = s.now()
	s.sourceProfile = &state
	s.persistLocked()
	return nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]models.ConnectedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountsLocked(), nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	return &account, nil
}

func (s *MemoryStore) SaveAccount(ctx context.Context, account models.ConnectedAccount) (*models.ConnectedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
		account.ConnectedAt = s.now()
	}
	s.accounts[account.ID] = account
	s.persistLocked()
	return &account, nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return apierr.ErrNotFound
	}
	delete(s.accounts, id)
	s.persistLocked()
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
	return nil
}

func defaultScheduleSettings(now time.Time) *models.ScheduleSettings {
	return &models.ScheduleSettings{
		ID:           "default",
		SelectedDays: []string{"monday", "wednesday", "friday"},
		PostsPerDay:  1,
		TimeSlots: []models.TimeSlot{
			{ID: "slot-1", Time: "09:00"},
		},
		UpdatedAt: now,
	}
}
