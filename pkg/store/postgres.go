package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"igreposter/pkg/apierr"
	"igreposter/pkg/config"
	"igreposter/pkg/logger"
	"igreposter/pkg/models"
)

// postRecord mirrors models.Post in the posts table.
type postRecord struct {
	ID            string    `gorm:"column:id;primaryKey"`
	ImageURL      string    `gorm:"column:image_url;not null"`
	Caption       string    `gorm:"column:caption"`
	ScheduledDate time.Time `gorm:"column:scheduled_date;index"`
	Status        string    `gorm:"column:status;not null;default:scheduled"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (postRecord) TableName() string { return "posts" }

// settingsRecord holds the single schedule settings row.
type settingsRecord struct {
	ID           string            `gorm:"column:id;primaryKey"`
	SelectedDays []string          `gorm:"column:selected_days;serializer:json"`
	PostsPerDay  int               `gorm:"column:posts_per_day"`
	TimeSlots    []models.TimeSlot `gorm:"column:time_slots;serializer:json"`
	UpdatedAt    time.Time         `gorm:"column:updated_at"`
}

func (settingsRecord) TableName() string { return "schedule_settings" }

// sourceProfileRecord holds the single automation source slot. The
// fetched post set and analysis ride along as jsonb.
type sourceProfileRecord struct {
	ID             int                     `gorm:"column:id;primaryKey"`
	Profile        models.Profile          `gorm:"column:profile;serializer:json"`
	Posts          []models.NormalizedPost `gorm:"column:posts;serializer:json"`
	Confirmed      bool                    `gorm:"column:confirmed"`
	Enabled        bool                    `gorm:"column:enabled"`
	ProfileURL     string                  `gorm:"column:profile_url"`
	Analysis       *models.ContentAnalysis `gorm:"column:analysis;serializer:json"`
	LastAnalyzedAt *time.Time              `gorm:"column:last_analyzed_at"`
	UpdatedAt      time.Time               `gorm:"column:updated_at"`
}

func (sourceProfileRecord) TableName() string { return "source_profile" }

// accountRecord mirrors models.ConnectedAccount.
type accountRecord struct {
	ID              string     `gorm:"column:id;primaryKey"`
	Platform        string     `gorm:"column:platform;not null"`
	Username        string     `gorm:"column:username;not null"`
	AccountID       string     `gorm:"column:account_id"`
	AccessToken     string     `gorm:"column:access_token"`
	RefreshToken    string     `gorm:"column:refresh_token"`
	ProfileURL      string     `gorm:"column:profile_url"`
	ProfileImageURL string     `gorm:"column:profile_image_url"`
	IsActive        bool       `gorm:"column:is_active"`
	ConnectedAt     time.Time  `gorm:"column:connected_at"`
	LastSyncedAt    *time.Time `gorm:"column:last_synced_at"`
}

func (accountRecord) TableName() string { return "connected_accounts" }

// PostgresStore persists state in Postgres through gorm.
type PostgresStore struct {
	db     *gorm.DB
	logger logger.Logger
	now    func() time.Time
}

// NewPostgresStore connects and migrates the schema.
func NewPostgresStore(cfg config.StoreConfig, log logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.PostgresDSN == "" {
		return nil, apierr.MissingConfig("DATABASE_URL")
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&postRecord{}, &settingsRecord{}, &sourceProfileRecord{}, &accountRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("connected to postgres store")
	return &PostgresStore{db: db, logger: log, now: time.Now}, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	var records []postRecord
	if err := s.db.WithContext(ctx).Order("scheduled_date asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := make([]models.Post, len(records))
	for i, r := range records {
		posts[i] = r.toModel()
	}
	return posts, nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var record postRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	post := record.toModel()
	return &post, nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	record := postRecord{
		ID:            uuid.New().String(),
		ImageURL:      post.ImageURL,
		Caption:       post.Caption,
		ScheduledDate: post.ScheduledDate,
		Status:        post.Status,
		CreatedAt:     s.now(),
	}
	if record.Status == "" {
		record.Status = models.PostStatusScheduled
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	created := record.toModel()
	return &created, nil
}

func (s *PostgresStore) UpdatePost(ctx context.Context, id string, update PostUpdate) (*models.Post, error) {
	updates := map[string]any{}
	if update.ImageURL != nil {
		updates["image_url"] = *update.ImageURL
	}
	if update.Caption != nil {
		updates["caption"] = *update.Caption
	}
	if update.ScheduledDate != nil {
		updates["scheduled_date"] = *update.ScheduledDate
	}
	if update.Status != nil {
		updates["status"] = *update.Status
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&postRecord{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update post: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apierr.ErrNotFound
		}
	}
	return s.GetPost(ctx, id)
}

func (s *PostgresStore) DeletePost(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&postRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apierr.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetScheduleSettings(ctx context.Context) (*models.ScheduleSettings, error) {
	var record settingsRecord
	err := s.db.WithContext(ctx).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultScheduleSettings(s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule settings: %w", err)
	}
	return &models.ScheduleSettings{
		ID:           record.ID,
		SelectedDays: record.SelectedDays,
		PostsPerDay:  record.PostsPerDay,
		TimeSlots:    record.TimeSlots,
		UpdatedAt:    record.UpdatedAt,
	}, nil
}

func (s *PostgresStore) SaveScheduleSettings(ctx context.Context, settings models.ScheduleSettings) (*models.ScheduleSettings, error) {
	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	settings.UpdatedAt = s.now()

	record := settingsRecord{
		ID:           settings.ID,
		SelectedDays: settings.SelectedDays,
		PostsPerDay:  settings.PostsPerDay,
		TimeSlots:    settings.TimeSlots,
		UpdatedAt:    settings.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to save schedule settings: %w", err)
	}
	return &settings, nil
}

func (s *PostgresStore) GetSourceProfile(ctx context.Context) (*models.SourceProfileState, error) {
	var record sourceProfileRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source profile: %w", err)
	}
	return &models.SourceProfileState{
		Profile:        record.Profile,
		Posts:          record.Posts,
		Confirmed:      record.Confirmed,
		Enabled:        record.Enabled,
		ProfileURL:     record.ProfileURL,
		Analysis:       record.Analysis,
		LastAnalyzedAt: record.LastAnalyzedAt,
		UpdatedAt:      record.UpdatedAt,
	}, nil
}

func (s *PostgresStore) SaveSourceProfile(ctx context.Context, state models.SourceProfileState) error {
	record := sourceProfileRecord{
		ID:             1,
		Profile:        state.Profile,
		Posts:          state.Posts,
		Confirmed:      state.Confirmed,
		Enabled:        state.Enabled,
		ProfileURL:     state.ProfileURL,
		Analysis:       state.Analysis,
		LastAnalyzedAt: state.LastAnalyzedAt,
		UpdatedAt:      s.now(),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save source profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.ConnectedAccount, error) {
	var records []accountRecord
	if err := s.db.WithContext(ctx).Order("connected_at asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accounts := make([]models.ConnectedAccount, len(records))
	for i, r := range records {
		accounts[i] = r.toModel()
	}
	return accounts, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error) {
	var record accountRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	account := record.toModel()
	return &account, nil
}

func (s *PostgresStore) SaveAccount(ctx context.Context, account models.ConnectedAccount) (*models.ConnectedAccount, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
		account.ConnectedAt = s.now()
	}
	record := accountRecord{
		ID:              account.ID,
		Platform:        account.Platform,
		Username:        account.Username,
		AccountID:       account.AccountID,
		AccessToken:     account.AccessToken,
		RefreshToken:    account.RefreshToken,
		ProfileURL:      account.ProfileURL,
		ProfileImageURL: account.ProfileImageURL,
		IsActive:        account.IsActive,
		ConnectedAt:     account.ConnectedAt,
		LastSyncedAt:    account.LastSyncedAt,
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return &account, nil
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&accountRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apierr.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r postRecord) toModel() models.Post {
	return models.Post{
		ID:            r.ID,
		ImageURL:      r.ImageURL,
		Caption:       r.Caption,
		ScheduledDate: r.ScheduledDate,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}
}

func (r accountRecord) toModel() models.ConnectedAccount {
	return models.ConnectedAccount{
		ID:              r.ID,
		Platform:        r.Platform,
		Username:        r.Username,
		AccountID:       r.AccountID,
		AccessToken:     r.AccessToken,
		RefreshToken:    r.RefreshToken,
		ProfileURL:      r.ProfileURL,
		ProfileImageURL: r.ProfileImageURL,
		IsActive:        r.IsActive,
		ConnectedAt:     r.ConnectedAt,
		LastSyncedAt:    r.LastSyncedAt,
	}
}
