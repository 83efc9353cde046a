package export

import (
	"folio/api/internal/content"
)

// Service turns case studies into downloadable documents.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// CaseStudyPDF renders the case study to HTML and prints it to PDF.
func (s *Service) CaseStudyPDF(study content.CaseStudy) (*Result, error) {
	html, err := RenderCaseStudyHTML(templateData(study))
	if err != nil {
		return nil, err
	}
	return exportPDF(html, study.Title)
}

func templateData(study content.CaseStudy) TemplateData {
	data := TemplateData{
		Title:    study.Title,
		Subtitle: study.Subtitle,
		Category: study.Category,
		Year:     study.Year,
		Role:     study.Overview.Role,
		Duration: study.Overview.Duration,
		Tools:    study.Overview.Tools,
		Overview: study.Overview.Description,
		Problem:  study.Problem,
		Solution: study.Solution,
	}

	for _, step := range study.Process {
		data.Process = append(data.Process, TemplateStep{
			Title:       step.Title,
			Description: step.Description,
		})
	}
	for _, r := range study.Results {
		data.Results = append(data.Results, TemplateResult{
			Metric: r.Metric,
			Value:  r.Value,
		})
	}
	if study.Testimonial != nil && study.Testimonial.Text != "" {
		data.Quote = &TemplateQuote{
			Text:   study.Testimonial.Text,
			Author: study.Testimonial.Author,
			Role:   study.Testimonial.Role,
		}
	}
	return data
}
