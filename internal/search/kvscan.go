package search

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"folio/api/internal/content"
	"folio/api/internal/kv"
)

// KVScan is the fallback searcher used when Meilisearch is absent or
// unhealthy. It walks the key-value namespace and matches query terms
// case-insensitively against the searchable fields. Fine for a
// human-curated dataset of dozens of records, not thousands.
type KVScan struct {
	store kv.Store
}

func NewKVScan(store kv.Store) *KVScan {
	return &KVScan{store: store}
}

func (s *KVScan) Healthy() bool {
	return true
}

func (s *KVScan) Search(q Query) ([]Result, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	terms := strings.Fields(strings.ToLower(strings.TrimSpace(q.Text)))
	var matches []Result

	if q.FilterType == "" || q.FilterType == ResultCaseStudy {
		values, err := s.store.GetByPrefix(ctx, content.CaseStudyPrefix)
		if err != nil {
			return nil, 0, err
		}
		for _, raw := range values {
			var study content.CaseStudy
			if err := json.Unmarshal(raw, &study); err != nil {
				continue
			}
			fields := []string{study.Title, study.Subtitle, study.Category}
			if !study.IsPasswordProtected {
				fields = append(fields, study.Problem, study.Solution)
			}
			if matchesAll(terms, fields...) {
				matches = append(matches, Result{
					Type:     ResultCaseStudy,
					ID:       study.ID,
					Title:    study.Title,
					Snippet:  study.Subtitle,
					Category: study.Category,
				})
			}
		}
	}

	if q.FilterType == "" || q.FilterType == ResultBlogPost {
		values, err := s.store.GetByPrefix(ctx, content.BlogPostPrefix)
		if err != nil {
			return nil, 0, err
		}
		for _, raw := range values {
			var post content.BlogPost
			if err := json.Unmarshal(raw, &post); err != nil {
				continue
			}
			if post.Status != content.StatusPublished {
				continue
			}
			fields := []string{post.Title, post.Description, post.Category}
			if !post.PasswordProtected {
				fields = append(fields, post.Content)
			}
			if matchesAll(terms, fields...) {
				matches = append(matches, Result{
					Type:     ResultBlogPost,
					ID:       post.ID,
					Slug:     post.Slug,
					Title:    post.Title,
					Snippet:  post.Description,
					Category: post.Category,
				})
			}
		}
	}

	total := len(matches)
	matches = paginate(matches, q.Offset, q.Limit)
	return matches, total, nil
}

// matchesAll reports whether every term appears in at least one field.
func matchesAll(terms []string, fields ...string) bool {
	if len(terms) == 0 {
		return true
	}
	haystack := strings.ToLower(strings.Join(fields, " "))
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func paginate(results []Result, offset, limit int) []Result {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
