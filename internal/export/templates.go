package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var caseStudyTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"join":  strings.Join,
	}

	templateContent, err := templateFS.ReadFile("templates/casestudy.html")
	if err != nil {
		// Fallback to built-in template if file not found
		caseStudyTemplate = template.Must(template.New("casestudy").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	caseStudyTemplate = template.Must(template.New("casestudy").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for the case study template rendering
type TemplateData struct {
	Title    string
	Subtitle string
	Category string
	Year     string
	Role     string
	Duration string
	Tools    []string
	Overview string
	Problem  string
	Solution string
	Process  []TemplateStep
	Results  []TemplateResult
	Quote    *TemplateQuote
}

// TemplateStep is a single process phase
type TemplateStep struct {
	Title       string
	Description string
}

// TemplateResult is a single outcome metric
type TemplateResult struct {
	Metric string
	Value  string
}

// TemplateQuote is an optional client testimonial
type TemplateQuote struct {
	Text   string
	Author string
	Role   string
}

// RenderCaseStudyHTML renders the case study template with provided data
func RenderCaseStudyHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := caseStudyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Subtitle}}<p>{{.Subtitle}}</p>{{end}}
  <div class="meta">{{.Category}}{{if .Year}} | {{.Year}}{{end}}</div>
  {{if .Problem}}<h2>Problem</h2><p>{{.Problem}}</p>{{end}}
  {{if .Solution}}<h2>Solution</h2><p>{{.Solution}}</p>{{end}}
</body>
</html>`
