package app

import (
	"net/http"
	"strings"
	"testing"
)

func testBlogPost(slug, status string) map[string]any {
	return map[string]any{
		"slug":        slug,
		"title":       "Design Thinking Beyond Workshops",
		"description": "Mindset over sticky notes",
		"content":     strings.Repeat("word ", 400),
		"category":    "Design & UX",
		"tags":        []string{"design", "process"},
		"status":      status,
	}
}

func createPost(t *testing.T, server *HTTPServer, post map[string]any) map[string]any {
	t.Helper()
	rr, response := doAdminJSON(t, server, http.MethodPost, "/api/admin/blog-posts", post)
	if rr.Code != http.StatusOK {
		t.Fatalf("create post failed with %d: %v", rr.Code, response)
	}
	return dataObject(t, response)
}

func TestBlogPostCreateComputesFields(t *testing.T) {
	server := newTestServer(newFakeKV())

	created := createPost(t, server, testBlogPost("design-thinking", "published"))
	if id, _ := created["id"].(string); !strings.HasPrefix(id, "post_") {
		t.Errorf("expected a generated id, got %v", created["id"])
	}
	if created["readingTime"] != float64(2) {
		t.Errorf("expected readingTime 2 for 400 words, got %v", created["readingTime"])
	}
	if created["publishedAt"] == "" || created["updatedAt"] == "" {
		t.Error("expected timestamps to be stamped")
	}
}

func TestBlogPostCreateValidation(t *testing.T) {
	server := newTestServer(newFakeKV())

	tests := []struct {
		name     string
		mutate   func(post map[string]any)
		wantCode string
	}{
		{
			name:     "missing slug",
			mutate:   func(post map[string]any) { delete(post, "slug") },
			wantCode: "VALIDATION_ERROR",
		},
		{
			name:     "unknown category",
			mutate:   func(post map[string]any) { post["category"] = "Gardening" },
			wantCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := testBlogPost("some-slug", "draft")
			tt.mutate(post)
			rr, response := doAdminJSON(t, server, http.MethodPost, "/api/admin/blog-posts", post)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %v", rr.Code, response)
			}
			if response["code"] != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, response["code"])
			}
		})
	}
}

func TestBlogPostSlugMustBeUnique(t *testing.T) {
	server := newTestServer(newFakeKV())

	createPost(t, server, testBlogPost("taken", "draft"))
	rr, response := doAdminJSON(t, server, http.MethodPost, "/api/admin/blog-posts", testBlogPost("taken", "draft"))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for duplicate slug, got %d", rr.Code)
	}
	if response["code"] != "SLUG_TAKEN" {
		t.Errorf("expected SLUG_TAKEN, got %v", response["code"])
	}

	// Updating a different post onto the taken slug is also rejected.
	other := createPost(t, server, testBlogPost("other", "draft"))
	rr, response = doAdminJSON(t, server, http.MethodPut, "/api/admin/blog-posts/"+other["id"].(string),
		map[string]any{"slug": "taken"})
	if rr.Code != http.StatusUnprocessableEntity || response["code"] != "SLUG_TAKEN" {
		t.Errorf("expected SLUG_TAKEN on update, got %d %v", rr.Code, response["code"])
	}

	// A post keeping its own slug is fine.
	rr, _ = doAdminJSON(t, server, http.MethodPut, "/api/admin/blog-posts/"+other["id"].(string),
		map[string]any{"slug": "other", "title": "Renamed"})
	if rr.Code != http.StatusOK {
		t.Errorf("expected update keeping own slug to succeed, got %d", rr.Code)
	}
}

func TestBlogPostSlugStoredTrimmed(t *testing.T) {
	server := newTestServer(newFakeKV())

	created := createPost(t, server, testBlogPost(" padded ", "published"))
	if created["slug"] != "padded" {
		t.Fatalf("created slug = %q, want %q", created["slug"], "padded")
	}

	// The trimmed slug is the one the public route resolves.
	rr, _ := doJSON(t, server, http.MethodGet, "/api/blog-posts/padded", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected trimmed slug to resolve, got %d", rr.Code)
	}

	// And it holds the uniqueness claim against later creates.
	rr, response := doAdminJSON(t, server, http.MethodPost, "/api/admin/blog-posts", testBlogPost("padded", "draft"))
	if rr.Code != http.StatusUnprocessableEntity || response["code"] != "SLUG_TAKEN" {
		t.Errorf("expected SLUG_TAKEN for trimmed duplicate, got %d %v", rr.Code, response["code"])
	}

	// Updates normalize the same way.
	rr, response = doAdminJSON(t, server, http.MethodPut, "/api/admin/blog-posts/"+created["id"].(string),
		map[string]any{"slug": "  renamed  "})
	if rr.Code != http.StatusOK {
		t.Fatalf("update failed with %d: %v", rr.Code, response)
	}
	if record := dataObject(t, response); record["slug"] != "renamed" {
		t.Errorf("updated slug = %q, want %q", record["slug"], "renamed")
	}
}

func TestDraftsInvisibleToPublic(t *testing.T) {
	server := newTestServer(newFakeKV())

	createPost(t, server, testBlogPost("published-post", "published"))
	draft := createPost(t, server, testBlogPost("draft-post", "draft"))

	rr, response := doJSON(t, server, http.MethodGet, "/api/blog-posts", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public list failed with %d", rr.Code)
	}
	posts := dataList(t, response)
	if len(posts) != 1 {
		t.Fatalf("expected only the published post, got %d", len(posts))
	}
	if posts[0].(map[string]any)["slug"] != "published-post" {
		t.Errorf("unexpected post in public list: %v", posts[0])
	}

	rr, _ = doJSON(t, server, http.MethodGet, "/api/blog-posts/draft-post", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("draft must 404 publicly, got %d", rr.Code)
	}

	// Admin surface sees both.
	rr, response = doAdminJSON(t, server, http.MethodGet, "/api/admin/blog-posts", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin list failed with %d", rr.Code)
	}
	if got := len(dataList(t, response)); got != 2 {
		t.Errorf("expected admin list of 2, got %d", got)
	}

	rr, _ = doAdminJSON(t, server, http.MethodGet, "/api/admin/blog-posts/"+draft["id"].(string), nil)
	if rr.Code != http.StatusOK {
		t.Errorf("admin get of draft failed with %d", rr.Code)
	}
}

func TestBlogPostUpdateRecomputesReadingTime(t *testing.T) {
	server := newTestServer(newFakeKV())

	created := createPost(t, server, testBlogPost("evolving", "draft"))
	id := created["id"].(string)

	rr, response := doAdminJSON(t, server, http.MethodPut, "/api/admin/blog-posts/"+id,
		map[string]any{"content": strings.Repeat("word ", 1900)})
	if rr.Code != http.StatusOK {
		t.Fatalf("update failed with %d: %v", rr.Code, response)
	}
	updated := dataObject(t, response)
	if updated["readingTime"] != float64(10) {
		t.Errorf("expected readingTime 10 after rewrite, got %v", updated["readingTime"])
	}

	// An update that does not touch content keeps the stored value.
	rr, response = doAdminJSON(t, server, http.MethodPut, "/api/admin/blog-posts/"+id,
		map[string]any{"title": "New Title"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update failed with %d", rr.Code)
	}
	if dataObject(t, response)["readingTime"] != float64(10) {
		t.Errorf("readingTime changed without a content change: %v", response)
	}
}

func TestPublishingStampsPublishedAt(t *testing.T) {
	server := newTestServer(newFakeKV())

	post := testBlogPost("late-bloomer", "draft")
	created := createPost(t, server, post)
	id := created["id"].(string)

	_, response := doAdminJSON(t, server, http.MethodPut, "/api/admin/blog-posts/"+id,
		map[string]any{"status": "published"})
	updated := dataObject(t, response)
	if publishedAt, _ := updated["publishedAt"].(string); publishedAt == "" {
		t.Error("expected publishedAt to be stamped on publish")
	}

	rr, _ := doJSON(t, server, http.MethodGet, "/api/blog-posts/late-bloomer", nil, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected published post to be public, got %d", rr.Code)
	}
}

func TestPublicPostsSortedNewestFirst(t *testing.T) {
	server := newTestServer(newFakeKV())

	older := testBlogPost("older", "published")
	older["publishedAt"] = "2024-01-01T00:00:00Z"
	newer := testBlogPost("newer", "published")
	newer["publishedAt"] = "2025-06-01T00:00:00Z"
	createPost(t, server, older)
	createPost(t, server, newer)

	_, response := doJSON(t, server, http.MethodGet, "/api/blog-posts", nil, nil)
	posts := dataList(t, response)
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].(map[string]any)["slug"] != "newer" {
		t.Errorf("expected newest first, got %v", posts[0])
	}
}

func TestBlogPostDeleteIsIdempotent(t *testing.T) {
	server := newTestServer(newFakeKV())

	created := createPost(t, server, testBlogPost("doomed", "draft"))
	id := created["id"].(string)

	for i := 0; i < 2; i++ {
		rr, _ := doAdminJSON(t, server, http.MethodDelete, "/api/admin/blog-posts/"+id, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("delete attempt %d failed with %d", i+1, rr.Code)
		}
	}

	rr, _ := doAdminJSON(t, server, http.MethodGet, "/api/admin/blog-posts/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestProtectedBlogPostUnlock(t *testing.T) {
	server := newTestServer(newFakeKV())

	post := testBlogPost("members-only", "published")
	post["passwordProtected"] = true
	post["password"] = "hunter2"
	createPost(t, server, post)

	// Public read is a teaser without the password or the body.
	rr, response := doJSON(t, server, http.MethodGet, "/api/blog-posts/members-only", nil, nil)
	if containsPassword(rr.Body.String()) {
		t.Error("public read leaked the content password")
	}
	if _, ok := dataObject(t, response)["content"]; ok {
		t.Error("public read exposed the protected body")
	}

	rr, response = doJSON(t, server, http.MethodPost, "/api/blog-posts/members-only/unlock",
		map[string]any{"password": "wrong"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %v", rr.Code, response)
	}

	rr, response = doJSON(t, server, http.MethodPost, "/api/blog-posts/members-only/unlock",
		map[string]any{"password": "hunter2"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, response)
	}
	token, _ := response["token"].(string)
	if token == "" {
		t.Fatal("expected an unlock token")
	}

	// The token redeems the full post.
	rr, response = doJSON(t, server, http.MethodGet, "/api/blog-posts/members-only", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusOK {
		t.Fatalf("redeeming read failed with %d", rr.Code)
	}
	if record := dataObject(t, response); record["content"] == nil || record["content"] == "" {
		t.Error("expected the protected body after redeeming the token")
	}
	if containsPassword(rr.Body.String()) {
		t.Error("redeemed read leaked the stored password")
	}
}
