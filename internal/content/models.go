// Package content defines the records stored in the key-value namespace
// and the helpers shared by every resource handler.
package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key namespace. Case studies and blog posts live under per-record keys;
// settings and homepage sections are single fixed keys.
const (
	CaseStudyPrefix = "case_study:"
	BlogPostPrefix  = "blog_post:"
	SettingsKey     = "site_settings"
	SectionsKey     = "homepage_sections"
)

func CaseStudyKey(id string) string {
	return CaseStudyPrefix + id
}

func BlogPostKey(id string) string {
	return BlogPostPrefix + id
}

type CaseStudyOverview struct {
	Role        string   `json:"role"`
	Duration    string   `json:"duration"`
	Tools       []string `json:"tools"`
	Description string   `json:"description"`
}

type ProcessStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ResultMetric struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

type Testimonial struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Role   string `json:"role"`
}

// CaseStudy is keyed by its caller-supplied id, which doubles as the URL
// slug. The id is immutable after creation: updates overlay the payload
// but always restore the stored identity.
type CaseStudy struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Subtitle            string            `json:"subtitle"`
	Category            string            `json:"category"`
	Year                string            `json:"year"`
	HeroImage           string            `json:"heroImage"`
	Overview            CaseStudyOverview `json:"overview"`
	Problem             string            `json:"problem"`
	Solution            string            `json:"solution"`
	Process             []ProcessStep     `json:"process"`
	Images              []string          `json:"images"`
	Results             []ResultMetric    `json:"results"`
	Testimonial         *Testimonial      `json:"testimonial,omitempty"`
	IsPasswordProtected bool              `json:"isPasswordProtected,omitempty"`
	Password            string            `json:"password,omitempty"`
	Featured            bool              `json:"featured,omitempty"`
}

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type BlogPost struct {
	ID                string   `json:"id"`
	Slug              string   `json:"slug"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Content           string   `json:"content"`
	Thumbnail         string   `json:"thumbnail"`
	Category          string   `json:"category"`
	Tags              []string `json:"tags"`
	Status            string   `json:"status"`
	Featured          bool     `json:"featured"`
	PasswordProtected bool     `json:"passwordProtected"`
	Password          string   `json:"password,omitempty"`
	PublishedAt       string   `json:"publishedAt"`
	UpdatedAt         string   `json:"updatedAt"`
	ReadingTime       int      `json:"readingTime,omitempty"`
	Author            string   `json:"author,omitempty"`
	MetaTitle         string   `json:"metaTitle,omitempty"`
	MetaDescription   string   `json:"metaDescription,omitempty"`
}

// Categories is the fixed blog category enumeration.
var Categories = []string{
	"Design & UX",
	"Personal Growth",
	"Technology",
	"Creative Projects",
	"Industry Insights",
	"Other",
}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type SiteSettings struct {
	SiteName         string   `json:"siteName"`
	HeroTitle        string   `json:"heroTitle"`
	HeroSubtitle     string   `json:"heroSubtitle"`
	AboutTitle       string   `json:"aboutTitle"`
	AboutDescription string   `json:"aboutDescription"`
	AboutExpertise   []string `json:"aboutExpertise"`
	ContactEmail     string   `json:"contactEmail"`
	ContactPhone     string   `json:"contactPhone"`
	SocialLinkedIn   string   `json:"socialLinkedIn"`
	SocialTwitter    string   `json:"socialTwitter"`
	SocialDribbble   string   `json:"socialDribbble"`
	SocialBehance    string   `json:"socialBehance"`
}

// HomepageSection describes one homepage block. Data carries optional
// section-specific structure (e.g. the stats list) and is passed through
// untouched.
type HomepageSection struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	IsVisible bool           `json:"isVisible"`
	Order     int            `json:"order"`
	Data      map[string]any `json:"data,omitempty"`
}

// ReadingTime estimates minutes to read at 200 words per minute, rounded
// up. Empty content reads in zero minutes.
func ReadingTime(body string) int {
	words := len(strings.Fields(body))
	if words == 0 {
		return 0
	}
	return (words + 199) / 200
}

// MergeRecord overlays the fields present in updates onto existing (a
// shallow merge: nested objects are replaced, not merged) and restores the
// identity field so a partial update can never re-key a record.
func MergeRecord(existing, updates json.RawMessage, idField, id string) (json.RawMessage, error) {
	var base map[string]any
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, fmt.Errorf("decode stored record: %w", err)
	}
	var overlay map[string]any
	if err := json.Unmarshal(updates, &overlay); err != nil {
		return nil, fmt.Errorf("decode update payload: %w", err)
	}
	for field, value := range overlay {
		base[field] = value
	}
	base[idField] = id

	merged, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode merged record: %w", err)
	}
	return merged, nil
}

// StripPassword removes the stored content password from a record before
// it leaves a public endpoint. The protection flag itself stays so clients
// know to prompt.
func StripPassword(raw json.RawMessage) json.RawMessage {
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return raw
	}
	if _, ok := record["password"]; !ok {
		return raw
	}
	delete(record, "password")
	stripped, err := json.Marshal(record)
	if err != nil {
		return raw
	}
	return stripped
}

// teaserFields is what a password-protected record still shows publicly.
// Everything else stays behind the unlock flow.
var teaserFields = map[string]bool{
	"id":                  true,
	"slug":                true,
	"title":               true,
	"subtitle":            true,
	"description":         true,
	"category":            true,
	"year":                true,
	"heroImage":           true,
	"thumbnail":           true,
	"tags":                true,
	"status":              true,
	"featured":            true,
	"author":              true,
	"publishedAt":         true,
	"updatedAt":           true,
	"readingTime":         true,
	"metaTitle":           true,
	"metaDescription":     true,
	"isPasswordProtected": true,
	"passwordProtected":   true,
}

// Sanitize prepares a record for a public endpoint. The stored password is
// always removed; for a protected record the body is withheld too, leaving
// only the teaser fields until the client unlocks it.
func Sanitize(raw json.RawMessage) json.RawMessage {
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return raw
	}
	delete(record, "password")
	if record["isPasswordProtected"] == true || record["passwordProtected"] == true {
		for field := range record {
			if !teaserFields[field] {
				delete(record, field)
			}
		}
	}
	sanitized, err := json.Marshal(record)
	if err != nil {
		return raw
	}
	return sanitized
}
