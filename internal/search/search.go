package search

// ResultType identifies the kind of record in a search result.
type ResultType string

const (
	ResultCaseStudy ResultType = "case_study"
	ResultBlogPost  ResultType = "blog_post"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Slug     string     `json:"slug,omitempty"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Category string     `json:"category,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// CaseStudyRecord is the data we index for a case study.
type CaseStudyRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Category string `json:"category"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// BlogPostRecord is the data we index for a published blog post. Drafts
// are never indexed; unpublishing a post deletes its record.
type BlogPostRecord struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Category    string `json:"category"`
}
