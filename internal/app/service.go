package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"folio/api/internal/assets"
	"folio/api/internal/auth"
	"folio/api/internal/config"
	"folio/api/internal/content"
	"folio/api/internal/export"
	"folio/api/internal/kv"
	"folio/api/internal/search"
	"folio/api/internal/util"
)

// Service implements the content operations over the key-value store. The
// search, assets and export collaborators are optional; routes backed by a
// nil collaborator answer 503.
type Service struct {
	store  kv.Store
	search *search.Service
	assets *assets.Service
	export *export.Service

	adminPassword     string
	adminPasswordHash string
	tokenSecret       []byte
	accessTTL         time.Duration
	unlockTTL         time.Duration

	now func() time.Time
}

func NewService(cfg config.Config, store kv.Store, searchSvc *search.Service, assetSvc *assets.Service, exportSvc *export.Service) *Service {
	return &Service{
		store:             store,
		search:            searchSvc,
		assets:            assetSvc,
		export:            exportSvc,
		adminPassword:     cfg.AdminPassword,
		adminPasswordHash: cfg.AdminPasswordHash,
		tokenSecret:       []byte(cfg.TokenSecret),
		accessTTL:         cfg.AccessTTL,
		unlockTTL:         cfg.UnlockTTL,
		now:               time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── Admin auth ──

type LoginResult struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// VerifyAdminSecret checks a submitted admin password. A configured bcrypt
// hash takes precedence over the plain password.
func (s *Service) VerifyAdminSecret(password string) bool {
	if password == "" {
		return false
	}
	if s.adminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
}

// Login exchanges the admin password for a signed expiring token. The raw
// password is never echoed back.
func (s *Service) Login(password string) (LoginResult, error) {
	if !s.VerifyAdminSecret(password) {
		return LoginResult{}, domainError(http.StatusUnauthorized, "INVALID_PASSWORD", "Invalid password", nil)
	}
	expiresAt := s.now().Add(s.accessTTL).Unix()
	token, err := auth.IssueToken(s.tokenSecret, auth.Claims{
		Scope: auth.ScopeAdmin,
		JTI:   util.NewID("tok"),
		Exp:   expiresAt,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyAdminToken reports whether token is a live admin-scoped token.
func (s *Service) VerifyAdminToken(token string) bool {
	claims, err := auth.ParseToken(s.tokenSecret, token)
	if err != nil {
		return false
	}
	return claims.Scope == auth.ScopeAdmin
}

// unlockTokenRedeems reports whether token is a live unlock token for the
// given resource key. Tokens scoped to another record never redeem.
func (s *Service) unlockTokenRedeems(token, resourceKey string) bool {
	if token == "" {
		return false
	}
	claims, err := auth.ParseToken(s.tokenSecret, token)
	if err != nil {
		return false
	}
	return claims.Scope == auth.UnlockScope(resourceKey)
}

// ── Case studies ──

func (s *Service) ListCaseStudies(ctx context.Context) ([]json.RawMessage, error) {
	records, err := s.store.GetByPrefix(ctx, content.CaseStudyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list case studies: %w", err)
	}
	sortRecordsBy(records, "id", true)
	sanitized := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		sanitized = append(sanitized, content.Sanitize(record))
	}
	return sanitized, nil
}

// GetCaseStudy serves the public read. Protected records come back as a
// teaser unless the caller presents a matching unlock token.
func (s *Service) GetCaseStudy(ctx context.Context, id, unlockToken string) (json.RawMessage, error) {
	record, err := s.store.Get(ctx, content.CaseStudyKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Case study not found", nil)
		}
		return nil, fmt.Errorf("get case study %s: %w", id, err)
	}
	if s.unlockTokenRedeems(unlockToken, content.CaseStudyKey(id)) {
		return content.StripPassword(record), nil
	}
	return content.Sanitize(record), nil
}

// AdminListCaseStudies returns every case study unsanitized so the editor
// form can round-trip protection passwords.
func (s *Service) AdminListCaseStudies(ctx context.Context) ([]json.RawMessage, error) {
	records, err := s.store.GetByPrefix(ctx, content.CaseStudyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list case studies: %w", err)
	}
	sortRecordsBy(records, "id", true)
	return records, nil
}

func (s *Service) AdminGetCaseStudy(ctx context.Context, id string) (json.RawMessage, error) {
	record, err := s.store.Get(ctx, content.CaseStudyKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Case study not found", nil)
		}
		return nil, fmt.Errorf("get case study %s: %w", id, err)
	}
	return record, nil
}

// SaveCaseStudy creates a case study or replaces an existing one wholesale.
// The payload must carry its own id, which doubles as the URL slug.
func (s *Service) SaveCaseStudy(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	id, err := recordID(raw, "id")
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, content.CaseStudyKey(id), raw); err != nil {
		return nil, fmt.Errorf("save case study %s: %w", id, err)
	}
	s.indexCaseStudy(raw)
	return raw, nil
}

// UpdateCaseStudy overlays the provided fields onto the stored record. The
// id cannot be changed by an update.
func (s *Service) UpdateCaseStudy(ctx context.Context, id string, updates json.RawMessage) (json.RawMessage, error) {
	existing, err := s.store.Get(ctx, content.CaseStudyKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Case study not found", nil)
		}
		return nil, fmt.Errorf("get case study %s: %w", id, err)
	}
	merged, err := content.MergeRecord(existing, updates, "id", id)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	if err := s.store.Set(ctx, content.CaseStudyKey(id), merged); err != nil {
		return nil, fmt.Errorf("save case study %s: %w", id, err)
	}
	s.indexCaseStudy(merged)
	return merged, nil
}

func (s *Service) DeleteCaseStudy(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, content.CaseStudyKey(id)); err != nil {
		return fmt.Errorf("delete case study %s: %w", id, err)
	}
	if s.search != nil {
		s.search.DeleteCaseStudy(id)
	}
	return nil
}

// ExportCaseStudy renders the case study as a PDF attachment.
func (s *Service) ExportCaseStudy(ctx context.Context, id string) (*export.Result, error) {
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	record, err := s.store.Get(ctx, content.CaseStudyKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Case study not found", nil)
		}
		return nil, fmt.Errorf("get case study %s: %w", id, err)
	}
	var study content.CaseStudy
	if err := json.Unmarshal(record, &study); err != nil {
		return nil, fmt.Errorf("decode case study %s: %w", id, err)
	}
	result, err := s.export.CaseStudyPDF(study)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF renderer is not installed", nil)
		}
		return nil, fmt.Errorf("export case study %s: %w", id, err)
	}
	return result, nil
}

// ── Blog posts ──

func (s *Service) ListPublishedPosts(ctx context.Context) ([]json.RawMessage, error) {
	records, err := s.store.GetByPrefix(ctx, content.BlogPostPrefix)
	if err != nil {
		return nil, fmt.Errorf("list blog posts: %w", err)
	}
	published := records[:0]
	for _, record := range records {
		if recordField(record, "status") == content.StatusPublished {
			published = append(published, record)
		}
	}
	sortRecordsBy(published, "publishedAt", false)
	sanitized := make([]json.RawMessage, 0, len(published))
	for _, record := range published {
		sanitized = append(sanitized, content.Sanitize(record))
	}
	return sanitized, nil
}

// GetPublishedPostBySlug serves the public read. Protected posts come back
// as a teaser unless the caller presents a matching unlock token.
func (s *Service) GetPublishedPostBySlug(ctx context.Context, slug, unlockToken string) (json.RawMessage, error) {
	record, err := s.findPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if recordField(record, "status") != content.StatusPublished {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Blog post not found", nil)
	}
	if s.unlockTokenRedeems(unlockToken, content.BlogPostKey(recordField(record, "id"))) {
		return content.StripPassword(record), nil
	}
	return content.Sanitize(record), nil
}

func (s *Service) AdminListPosts(ctx context.Context) ([]json.RawMessage, error) {
	records, err := s.store.GetByPrefix(ctx, content.BlogPostPrefix)
	if err != nil {
		return nil, fmt.Errorf("list blog posts: %w", err)
	}
	sortRecordsBy(records, "updatedAt", false)
	return records, nil
}

func (s *Service) AdminGetPost(ctx context.Context, id string) (json.RawMessage, error) {
	record, err := s.store.Get(ctx, content.BlogPostKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Blog post not found", nil)
		}
		return nil, fmt.Errorf("get blog post %s: %w", id, err)
	}
	return record, nil
}

// CreatePost stores a new blog post. The slug must be unique across the
// collection; ids are generated when the payload does not carry one.
func (s *Service) CreatePost(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var post map[string]any
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body must be a JSON object", nil)
	}

	slug, _ := post["slug"].(string)
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slug is required", nil)
	}
	if category, ok := post["category"].(string); ok && category != "" && !content.ValidCategory(category) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown category: "+category, nil)
	}
	if taken, err := s.slugTaken(ctx, slug, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, domainError(http.StatusUnprocessableEntity, "SLUG_TAKEN", "slug is already in use: "+slug, nil)
	}
	post["slug"] = slug

	id, _ := post["id"].(string)
	if strings.TrimSpace(id) == "" {
		id = util.NewID("post")
	}
	post["id"] = id

	body, _ := post["content"].(string)
	post["readingTime"] = content.ReadingTime(body)

	now := s.now().UTC().Format(time.RFC3339)
	post["updatedAt"] = now
	if publishedAt, _ := post["publishedAt"].(string); publishedAt == "" {
		post["publishedAt"] = now
	}
	if status, _ := post["status"].(string); status == "" {
		post["status"] = content.StatusDraft
	}

	encoded, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("encode blog post: %w", err)
	}
	if err := s.store.Set(ctx, content.BlogPostKey(id), encoded); err != nil {
		return nil, fmt.Errorf("save blog post %s: %w", id, err)
	}
	s.indexBlogPost(encoded)
	return encoded, nil
}

// UpdatePost overlays the provided fields onto the stored post. Reading
// time is recomputed when the content changes, and slug changes are checked
// against the rest of the collection.
func (s *Service) UpdatePost(ctx context.Context, id string, updates json.RawMessage) (json.RawMessage, error) {
	existing, err := s.store.Get(ctx, content.BlogPostKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Blog post not found", nil)
		}
		return nil, fmt.Errorf("get blog post %s: %w", id, err)
	}

	var overlay map[string]any
	if err := json.Unmarshal(updates, &overlay); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body must be a JSON object", nil)
	}

	if slug, ok := overlay["slug"].(string); ok {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slug cannot be empty", nil)
		}
		if slug != recordField(existing, "slug") {
			if taken, err := s.slugTaken(ctx, slug, id); err != nil {
				return nil, err
			} else if taken {
				return nil, domainError(http.StatusUnprocessableEntity, "SLUG_TAKEN", "slug is already in use: "+slug, nil)
			}
		}
		overlay["slug"] = slug
	}
	if category, ok := overlay["category"].(string); ok && category != "" && !content.ValidCategory(category) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown category: "+category, nil)
	}
	if body, ok := overlay["content"].(string); ok {
		overlay["readingTime"] = content.ReadingTime(body)
	}
	overlay["updatedAt"] = s.now().UTC().Format(time.RFC3339)

	patched, err := json.Marshal(overlay)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	merged, err := content.MergeRecord(existing, patched, "id", id)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}

	// A post published without an explicit timestamp gets stamped now.
	if recordField(merged, "status") == content.StatusPublished && recordField(merged, "publishedAt") == "" {
		merged, err = content.MergeRecord(merged, json.RawMessage(fmt.Sprintf(`{"publishedAt":%q}`, s.now().UTC().Format(time.RFC3339))), "id", id)
		if err != nil {
			return nil, fmt.Errorf("stamp publishedAt: %w", err)
		}
	}

	if err := s.store.Set(ctx, content.BlogPostKey(id), merged); err != nil {
		return nil, fmt.Errorf("save blog post %s: %w", id, err)
	}
	s.indexBlogPost(merged)
	return merged, nil
}

func (s *Service) DeletePost(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, content.BlogPostKey(id)); err != nil {
		return fmt.Errorf("delete blog post %s: %w", id, err)
	}
	if s.search != nil {
		s.search.DeleteBlogPost(id)
	}
	return nil
}

func (s *Service) findPostBySlug(ctx context.Context, slug string) (json.RawMessage, error) {
	records, err := s.store.GetByPrefix(ctx, content.BlogPostPrefix)
	if err != nil {
		return nil, fmt.Errorf("list blog posts: %w", err)
	}
	for _, record := range records {
		if recordField(record, "slug") == slug {
			return record, nil
		}
	}
	return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Blog post not found", nil)
}

func (s *Service) slugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	records, err := s.store.GetByPrefix(ctx, content.BlogPostPrefix)
	if err != nil {
		return false, fmt.Errorf("list blog posts: %w", err)
	}
	for _, record := range records {
		if recordField(record, "slug") == slug && recordField(record, "id") != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// ── Settings and homepage sections ──

func (s *Service) Settings(ctx context.Context) (json.RawMessage, error) {
	record, err := s.store.Get(ctx, content.SettingsKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return json.Marshal(content.DefaultSettings())
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return record, nil
}

// SaveSettings overwrites the settings blob wholesale.
func (s *Service) SaveSettings(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var settings map[string]any
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body must be a JSON object", nil)
	}
	if err := s.store.Set(ctx, content.SettingsKey, raw); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return raw, nil
}

func (s *Service) Sections(ctx context.Context) ([]content.HomepageSection, error) {
	record, err := s.store.Get(ctx, content.SectionsKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return content.DefaultSections(), nil
		}
		return nil, fmt.Errorf("get homepage sections: %w", err)
	}
	var sections []content.HomepageSection
	if err := json.Unmarshal(record, &sections); err != nil {
		return nil, fmt.Errorf("decode homepage sections: %w", err)
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	return sections, nil
}

// SaveSections replaces the stored section list. The server copy is the
// source of truth for ordering and visibility.
func (s *Service) SaveSections(ctx context.Context, sections []content.HomepageSection) ([]content.HomepageSection, error) {
	for i, section := range sections {
		if strings.TrimSpace(section.ID) == "" {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("sections[%d] is missing an id", i), nil)
		}
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	encoded, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("encode homepage sections: %w", err)
	}
	if err := s.store.Set(ctx, content.SectionsKey, encoded); err != nil {
		return nil, fmt.Errorf("save homepage sections: %w", err)
	}
	return sections, nil
}

// ── Unlock ──

type UnlockResult struct {
	Token string          `json:"token,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// UnlockCaseStudy checks the submitted password against a protected case
// study and, on success, issues a short-lived token scoped to that record.
// Unprotected records unlock without a token. The stored password never
// appears in the response.
func (s *Service) UnlockCaseStudy(ctx context.Context, id, password string) (UnlockResult, error) {
	record, err := s.store.Get(ctx, content.CaseStudyKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return UnlockResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Case study not found", nil)
		}
		return UnlockResult{}, fmt.Errorf("get case study %s: %w", id, err)
	}
	return s.unlock(record, content.CaseStudyKey(id), password, recordBool(record, "isPasswordProtected"))
}

func (s *Service) UnlockBlogPost(ctx context.Context, slug, password string) (UnlockResult, error) {
	record, err := s.findPostBySlug(ctx, slug)
	if err != nil {
		return UnlockResult{}, err
	}
	if recordField(record, "status") != content.StatusPublished {
		return UnlockResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Blog post not found", nil)
	}
	id := recordField(record, "id")
	return s.unlock(record, content.BlogPostKey(id), password, recordBool(record, "passwordProtected"))
}

func (s *Service) unlock(record json.RawMessage, resourceKey, password string, protected bool) (UnlockResult, error) {
	if !protected {
		return UnlockResult{Data: content.StripPassword(record)}, nil
	}
	stored := recordField(record, "password")
	if stored == "" || subtle.ConstantTimeCompare([]byte(password), []byte(stored)) != 1 {
		return UnlockResult{}, domainError(http.StatusUnauthorized, "INVALID_PASSWORD", "Invalid password", nil)
	}
	token, err := auth.IssueToken(s.tokenSecret, auth.Claims{
		Scope: auth.UnlockScope(resourceKey),
		JTI:   util.NewID("tok"),
		Exp:   s.now().Add(s.unlockTTL).Unix(),
	})
	if err != nil {
		return UnlockResult{}, fmt.Errorf("issue unlock token: %w", err)
	}
	return UnlockResult{Token: token, Data: content.StripPassword(record)}, nil
}

// ── Initialization ──

type InitializeInput struct {
	CaseStudies []json.RawMessage `json:"caseStudies"`
	BlogPosts   []json.RawMessage `json:"blogPosts"`
}

type InitializeResult struct {
	Message     string `json:"message"`
	CaseStudies int    `json:"caseStudies"`
	BlogPosts   int    `json:"blogPosts"`
}

// Initialize seeds the store with the provided records. Writes are
// sequential upserts keyed by record id, so running it again with the same
// payload converges to the same state. Settings and homepage sections are
// written only when absent.
func (s *Service) Initialize(ctx context.Context, input InitializeInput) (InitializeResult, error) {
	for i, raw := range input.CaseStudies {
		id, err := recordID(raw, "id")
		if err != nil {
			return InitializeResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("caseStudies[%d] is missing an id", i), nil)
		}
		if err := s.store.Set(ctx, content.CaseStudyKey(id), raw); err != nil {
			return InitializeResult{}, fmt.Errorf("seed case study %s: %w", id, err)
		}
	}

	for i, raw := range input.BlogPosts {
		id, err := recordID(raw, "id")
		if err != nil {
			return InitializeResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("blogPosts[%d] is missing an id", i), nil)
		}
		seeded, err := withReadingTime(raw)
		if err != nil {
			return InitializeResult{}, fmt.Errorf("seed blog post %s: %w", id, err)
		}
		if err := s.store.Set(ctx, content.BlogPostKey(id), seeded); err != nil {
			return InitializeResult{}, fmt.Errorf("seed blog post %s: %w", id, err)
		}
	}

	if _, err := s.store.Get(ctx, content.SettingsKey); errors.Is(err, kv.ErrNotFound) {
		encoded, err := json.Marshal(content.DefaultSettings())
		if err != nil {
			return InitializeResult{}, fmt.Errorf("encode default settings: %w", err)
		}
		if err := s.store.Set(ctx, content.SettingsKey, encoded); err != nil {
			return InitializeResult{}, fmt.Errorf("seed settings: %w", err)
		}
	} else if err != nil {
		return InitializeResult{}, fmt.Errorf("get settings: %w", err)
	}

	if _, err := s.store.Get(ctx, content.SectionsKey); errors.Is(err, kv.ErrNotFound) {
		encoded, err := json.Marshal(content.DefaultSections())
		if err != nil {
			return InitializeResult{}, fmt.Errorf("encode default sections: %w", err)
		}
		if err := s.store.Set(ctx, content.SectionsKey, encoded); err != nil {
			return InitializeResult{}, fmt.Errorf("seed sections: %w", err)
		}
	} else if err != nil {
		return InitializeResult{}, fmt.Errorf("get sections: %w", err)
	}

	s.Reindex(ctx)

	return InitializeResult{
		Message:     fmt.Sprintf("Initialized %d case studies and %d blog posts", len(input.CaseStudies), len(input.BlogPosts)),
		CaseStudies: len(input.CaseStudies),
		BlogPosts:   len(input.BlogPosts),
	}, nil
}

// ── Search ──

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// Reindex pushes every case study and published post into the search
// index. Failures are logged by the search layer, not surfaced.
func (s *Service) Reindex(ctx context.Context) {
	if s.search == nil {
		return
	}
	var studies []search.CaseStudyRecord
	if records, err := s.store.GetByPrefix(ctx, content.CaseStudyPrefix); err == nil {
		for _, record := range records {
			var study content.CaseStudy
			if json.Unmarshal(record, &study) == nil && study.ID != "" {
				studies = append(studies, caseStudySearchRecord(study))
			}
		}
	}
	var posts []search.BlogPostRecord
	if records, err := s.store.GetByPrefix(ctx, content.BlogPostPrefix); err == nil {
		for _, record := range records {
			var post content.BlogPost
			if json.Unmarshal(record, &post) == nil && post.ID != "" && post.Status == content.StatusPublished {
				posts = append(posts, blogPostSearchRecord(post))
			}
		}
	}
	s.search.ReindexAll(studies, posts)
}

func (s *Service) indexCaseStudy(record json.RawMessage) {
	if s.search == nil {
		return
	}
	var study content.CaseStudy
	if json.Unmarshal(record, &study) != nil || study.ID == "" {
		return
	}
	s.search.IndexCaseStudy(caseStudySearchRecord(study))
}

func (s *Service) indexBlogPost(record json.RawMessage) {
	if s.search == nil {
		return
	}
	var post content.BlogPost
	if json.Unmarshal(record, &post) != nil || post.ID == "" {
		return
	}
	// Drafts must never be searchable.
	if post.Status != content.StatusPublished {
		s.search.DeleteBlogPost(post.ID)
		return
	}
	s.search.IndexBlogPost(blogPostSearchRecord(post))
}

// Search records for protected content carry only the teaser fields, so
// the locked body never surfaces through a snippet.
func caseStudySearchRecord(study content.CaseStudy) search.CaseStudyRecord {
	record := search.CaseStudyRecord{
		ID:       study.ID,
		Title:    study.Title,
		Subtitle: study.Subtitle,
		Category: study.Category,
	}
	if !study.IsPasswordProtected {
		record.Problem = study.Problem
		record.Solution = study.Solution
	}
	return record
}

func blogPostSearchRecord(post content.BlogPost) search.BlogPostRecord {
	record := search.BlogPostRecord{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		Description: post.Description,
		Category:    post.Category,
	}
	if !post.PasswordProtected {
		record.Content = post.Content
	}
	return record
}

// ── Assets ──

func (s *Service) AssetsConfigured() bool {
	return s.assets != nil
}

func (s *Service) StoreAsset(ctx context.Context, r io.Reader, contentType string, size int64) (*assets.Upload, error) {
	if s.assets == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ASSETS_UNAVAILABLE", "Asset storage is not configured", nil)
	}
	upload, err := s.assets.Store(ctx, r, contentType, size)
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrUnsupportedType):
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "only image uploads are supported", nil)
		case errors.Is(err, assets.ErrTooLarge):
			return nil, domainError(http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "upload exceeds the size limit", nil)
		}
		return nil, fmt.Errorf("store asset: %w", err)
	}
	return upload, nil
}

// ── Record helpers ──

func recordID(raw json.RawMessage, field string) (string, error) {
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body must be a JSON object", nil)
	}
	id, _ := record[field].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", field+" is required", nil)
	}
	return id, nil
}

func recordField(raw json.RawMessage, field string) string {
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return ""
	}
	value, _ := record[field].(string)
	return value
}

func recordBool(raw json.RawMessage, field string) bool {
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return false
	}
	value, _ := record[field].(bool)
	return value
}

func withReadingTime(raw json.RawMessage) (json.RawMessage, error) {
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if _, ok := record["readingTime"]; ok {
		return raw, nil
	}
	body, _ := record["content"].(string)
	if body == "" {
		return raw, nil
	}
	record["readingTime"] = content.ReadingTime(body)
	return json.Marshal(record)
}

// sortRecordsBy orders raw records by a string field, ascending or
// descending. RFC 3339 timestamps sort correctly as strings.
func sortRecordsBy(records []json.RawMessage, field string, ascending bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := recordField(records[i], field), recordField(records[j], field)
		if ascending {
			return a < b
		}
		return a > b
	})
}
