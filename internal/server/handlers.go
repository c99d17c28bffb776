package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"igreposter/pkg/analyzer"
	"igreposter/pkg/apierr"
	"igreposter/pkg/graphapi"
	"igreposter/pkg/logger"
	"igreposter/pkg/models"
	"igreposter/pkg/queue"
	"igreposter/pkg/scrape"
	"igreposter/pkg/store"
)

// defaultQueueLimit is how many queued posts are built when the request
// does not specify a limit.
const defaultQueueLimit = 6

// ProfileFetcher resolves source profiles and their posts.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (*models.Profile, error)
	FetchPosts(ctx context.Context, username string) ([]models.NormalizedPost, error)
}

// CaptionRewriter rewrites captions and summarizes writing style.
type CaptionRewriter interface {
	ParaphraseCaption(ctx context.Context, caption, username string, samples []string) string
	AnalyzeStyle(ctx context.Context, samples []string) *models.StyleProfile
}

// Publisher handles the Graph API OAuth and publish flows.
type Publisher interface {
	Configured() bool
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	LongLivedToken(ctx context.Context, shortToken string) (string, error)
	DiscoverBusinessAccount(ctx context.Context, userToken string) (*graphapi.BusinessAccount, error)
	Publish(ctx context.Context, accountID, token, imageURL, caption string) (string, error)
}

// Handler carries the dependencies of every route.
type Handler struct {
	store     store.Store
	fetcher   ProfileFetcher
	rewriter  CaptionRewriter
	publisher Publisher
	queue     *queue.Builder
	logger    logger.Logger
}

// NewHandler creates the route handler set.
func NewHandler(st store.Store, fetcher ProfileFetcher, rewriter CaptionRewriter, publisher Publisher, builder *queue.Builder, log logger.Logger) *Handler {
	if log == nil {
		log = logger.GetLogger()
	}
	if builder == nil {
		builder = queue.NewBuilder()
	}
	return &Handler{
		store:     st,
		fetcher:   fetcher,
		rewriter:  rewriter,
		publisher: publisher,
		queue:     builder,
		logger:    log,
	}
}

// --- posts ---

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, posts)
}

type createPostRequest struct {
	ImageURL      string    `json:"imageUrl"`
	Caption       string    `json:"caption"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Status        string    `json:"status"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "imageUrl is required")
		return
	}
	if req.ScheduledDate.IsZero() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "scheduledDate is required")
		return
	}

	created, err := h.store.CreatePost(r.Context(), models.Post{
		ImageURL:      req.ImageURL,
		Caption:       req.Caption,
		ScheduledDate: req.ScheduledDate,
		Status:        req.Status,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, created)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, post)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var update store.PostUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}

	post, err := h.store.UpdatePost(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, post)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "post deleted")
}

// --- schedule settings ---

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetScheduleSettings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, settings)
}

func (h *Handler) saveSchedule(w http.ResponseWriter, r *http.Request) {
	var settings models.ScheduleSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if settings.PostsPerDay < 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "postsPerDay must not be negative")
		return
	}

	saved, err := h.store.SaveScheduleSettings(r.Context(), settings)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, saved)
}

// --- automation source profile ---

func (h *Handler) getAutomation(w http.ResponseWriter, r *http.Request) {
	state, err := h.store.GetSourceProfile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if state == nil {
		state = &models.SourceProfileState{}
	}
	writeSuccess(w, http.StatusOK, state)
}

type updateAutomationRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) updateAutomation(w http.ResponseWriter, r *http.Request) {
	var req updateAutomationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "enabled is required")
		return
	}

	state, err := h.store.GetSourceProfile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if state == nil || !state.Confirmed {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "no confirmed source profile")
		return
	}

	state.Enabled = *req.Enabled
	if err := h.store.SaveSourceProfile(r.Context(), *state); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, state)
}

// --- source profile search and confirmation ---

type searchProfileRequest struct {
	Username string `json:"username"`
}

func (h *Handler) searchProfile(w http.ResponseWriter, r *http.Request) {
	var req searchProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}

	username, err := scrape.UsernameFromInput(req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	profile, err := h.fetcher.FetchProfile(r.Context(), username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	state := models.SourceProfileState{
		Profile:    *profile,
		Posts:      profile.RecentPosts,
		Confirmed:  false,
		Enabled:    false,
		ProfileURL: fmt.Sprintf("https://instagram.com/%s", profile.Username),
	}
	if err := h.store.SaveSourceProfile(r.Context(), state); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, profile)
}

type confirmProfileRequest struct {
	Username string `json:"username"`
	URL      string `json:"url"`
}

func (h *Handler) confirmProfile(w http.ResponseWriter, r *http.Request) {
	var req confirmProfileRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional

	state, err := h.store.GetSourceProfile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if state == nil {
		// No prior search; a url in the body lets the client confirm directly.
		input := req.Username
		if input == "" {
			input = req.URL
		}
		if input == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "search for a profile before confirming")
			return
		}
		username, err := scrape.UsernameFromInput(input)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		profile, err := h.fetcher.FetchProfile(r.Context(), username)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		state = &models.SourceProfileState{
			Profile:    *profile,
			Posts:      profile.RecentPosts,
			ProfileURL: fmt.Sprintf("https://instagram.com/%s", profile.Username),
		}
	}

	// Fetch the full post set; the search step only stored the preview.
	posts, err := h.fetcher.FetchPosts(r.Context(), state.Profile.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(posts) > 0 {
		state.Posts = posts
	}

	state.Confirmed = true
	state.Enabled = true
	analysis := analyzer.Analyze(state.Profile.Username, state.Posts)
	now := time.Now()
	state.Analysis = analysis
	state.LastAnalyzedAt = &now

	if err := h.store.SaveSourceProfile(r.Context(), *state); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, state)
}

// --- repost queue ---

func (h *Handler) queuedPosts(w http.ResponseWriter, r *http.Request) {
	limit := defaultQueueLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	state, err := h.store.GetSourceProfile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if state == nil || !state.Confirmed {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "no confirmed source profile")
		return
	}

	writeSuccess(w, http.StatusOK, h.queue.Build(state.Posts, limit))
}

type generateRepostRequest struct {
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
}

func (h *Handler) generateRepost(w http.ResponseWriter, r *http.Request) {
	var req generateRepostRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional

	state, err := h.store.GetSourceProfile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var samples []string
	var sourceUsername string
	if state != nil {
		sourceUsername = state.Profile.Username
		for _, post := range state.Posts {
			if post.Caption != "" {
				samples = append(samples, post.Caption)
			}
		}
	}

	// Without an explicit post, sample one from the source profile.
	if req.ImageURL == "" {
		if state == nil || len(state.Posts) == 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "no source posts to repost")
			return
		}
		sampled := h.queue.Build(state.Posts, 1)[0]
		req.ImageURL = sampled.ImageURL
		req.Caption = sampled.Caption
	}

	rewritten := h.rewriter.ParaphraseCaption(r.Context(), req.Caption, sourceUsername, samples)
	writeSuccess(w, http.StatusOK, map[string]any{
		"imageUrl":        req.ImageURL,
		"caption":         rewritten,
		"originalCaption": req.Caption,
	})
}

type analyzeProfileRequest struct {
	Username string `json:"username"`
	URL      string `json:"url"`
}

func (h *Handler) analyzeProfile(w http.ResponseWriter, r *http.Request) {
	var req analyzeProfileRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional

	state, err := h.store.GetSourceProfile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// A url in the body re-fetches the profile before analyzing.
	if input := firstNonEmpty(req.Username, req.URL); input != "" {
		username, err := scrape.UsernameFromInput(input)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		profile, err := h.fetcher.FetchProfile(r.Context(), username)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if state == nil {
			state = &models.SourceProfileState{}
		}
		state.Profile = *profile
		state.Posts = profile.RecentPosts
		state.ProfileURL = fmt.Sprintf("https://instagram.com/%s", profile.Username)
	}

	if state == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "no source profile to analyze")
		return
	}

	analysis := analyzer.Analyze(state.Profile.Username, state.Posts)

	var samples []string
	for _, post := range state.Posts {
		if post.Caption != "" {
			samples = append(samples, post.Caption)
		}
	}
	style := h.rewriter.AnalyzeStyle(r.Context(), samples)

	now := time.Now()
	state.Analysis = analysis
	state.LastAnalyzedAt = &now
	if err := h.store.SaveSourceProfile(r.Context(), *state); err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"analysis": analysis,
		"style":    style,
	})
}

// --- connected accounts ---

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, accounts)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, account)
}

type createAccountRequest struct {
	Platform        string `json:"platform"`
	Username        string `json:"username"`
	AccountID       string `json:"accountId"`
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	ProfileURL      string `json:"profileUrl"`
	ProfileImageURL string `json:"profileImageUrl"`
	IsActive        *bool  `json:"isActive"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if req.Platform == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "platform and username are required")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	account, err := h.store.SaveAccount(r.Context(), models.ConnectedAccount{
		Platform:        req.Platform,
		Username:        req.Username,
		AccountID:       req.AccountID,
		AccessToken:     req.AccessToken,
		RefreshToken:    req.RefreshToken,
		ProfileURL:      req.ProfileURL,
		ProfileImageURL: req.ProfileImageURL,
		IsActive:        active,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, account)
}

type updateAccountRequest struct {
	Username        *string `json:"username"`
	AccessToken     *string `json:"accessToken"`
	RefreshToken    *string `json:"refreshToken"`
	ProfileURL      *string `json:"profileUrl"`
	ProfileImageURL *string `json:"profileImageUrl"`
	IsActive        *bool   `json:"isActive"`
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}

	account, err := h.store.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.Username != nil {
		account.Username = *req.Username
	}
	if req.AccessToken != nil {
		account.AccessToken = *req.AccessToken
	}
	if req.RefreshToken != nil {
		account.RefreshToken = *req.RefreshToken
	}
	if req.ProfileURL != nil {
		account.ProfileURL = *req.ProfileURL
	}
	if req.ProfileImageURL != nil {
		account.ProfileImageURL = *req.ProfileImageURL
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}

	saved, err := h.store.SaveAccount(r.Context(), *account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, saved)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "account disconnected")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// --- OAuth and publishing ---

func (h *Handler) beginInstagramAuth(w http.ResponseWriter, r *http.Request) {
	if !h.publisher.Configured() {
		writeDomainError(w, apierr.MissingConfig("INSTAGRAM_APP_ID/INSTAGRAM_APP_SECRET"))
		return
	}
	http.Redirect(w, r, h.publisher.AuthURL(uuid.NewString()), http.StatusFound)
}

func (h *Handler) instagramAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "missing oauth code")
		return
	}

	shortToken, err := h.publisher.ExchangeCode(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	longToken, err := h.publisher.LongLivedToken(r.Context(), shortToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	business, err := h.publisher.DiscoverBusinessAccount(r.Context(), longToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	account, err := h.store.SaveAccount(r.Context(), models.ConnectedAccount{
		Platform:        "instagram",
		Username:        business.Username,
		AccountID:       business.ID,
		AccessToken:     business.PageToken,
		RefreshToken:    longToken,
		ProfileURL:      fmt.Sprintf("https://instagram.com/%s", business.Username),
		ProfileImageURL: business.ProfilePicURL,
		IsActive:        true,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoWithFields("instagram account connected", map[string]interface{}{
		"username":   business.Username,
		"account_id": business.ID,
	})
	writeSuccess(w, http.StatusOK, account)
}

func (h *Handler) publishPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetPost(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var target *models.ConnectedAccount
	for i := range accounts {
		if accounts[i].IsActive {
			target = &accounts[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "no active connected account")
		return
	}

	mediaID, err := h.publisher.Publish(r.Context(), target.AccountID, target.AccessToken, post.ImageURL, post.Caption)
	status := models.PostStatusPublished
	if err != nil {
		status = models.PostStatusFailed
	}
	if _, updateErr := h.store.UpdatePost(r.Context(), post.ID, store.PostUpdate{Status: &status}); updateErr != nil {
		h.logger.WarnWithFields("failed to record publish outcome", map[string]interface{}{
			"post_id": post.ID,
			"error":   updateErr.Error(),
		})
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"mediaId": mediaID,
		"postId":  post.ID,
		"status":  status,
	})
}
