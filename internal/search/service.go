package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to a
// key-value scan.
type Service struct {
	meili  *Meili
	kvscan *KVScan
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, kvscan *KVScan) *Service {
	return &Service{meili: meili, kvscan: kvscan}
}

// Search tries Meilisearch if healthy, otherwise falls back to scanning
// the key-value store.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to kv scan: %v", err)
	}

	results, total, err := s.kvscan.Search(q)
	if err != nil {
		log.Printf("search: kv scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexCaseStudy indexes a case study (fire-and-forget to Meilisearch).
func (s *Service) IndexCaseStudy(record CaseStudyRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexCaseStudy(record); err != nil {
			log.Printf("search: index case study %s: %v", record.ID, err)
		}
	}()
}

// IndexBlogPost indexes a published blog post (fire-and-forget).
func (s *Service) IndexBlogPost(record BlogPostRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexBlogPost(record); err != nil {
			log.Printf("search: index blog post %s: %v", record.ID, err)
		}
	}()
}

// DeleteCaseStudy removes a case study from the index (fire-and-forget).
func (s *Service) DeleteCaseStudy(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCaseStudy(id); err != nil {
			log.Printf("search: delete case study %s: %v", id, err)
		}
	}()
}

// DeleteBlogPost removes a blog post from the index (fire-and-forget).
// Also called when a post moves back to draft, so unpublished content
// never lingers in search results.
func (s *Service) DeleteBlogPost(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteBlogPost(id); err != nil {
			log.Printf("search: delete blog post %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes the full record set into Meilisearch. Called at boot
// so the index catches up with whatever is in the store.
func (s *Service) ReindexAll(studies []CaseStudyRecord, posts []BlogPostRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(studies) > 0 {
		if err := s.meili.IndexCaseStudies(studies); err != nil {
			log.Printf("search: reindex case studies: %v", err)
		}
	}
	if len(posts) > 0 {
		if err := s.meili.IndexBlogPosts(posts); err != nil {
			log.Printf("search: reindex blog posts: %v", err)
		}
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
