package compose

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

const promptTemplateName = "outreach.md"

//go:embed templates/*.md
var templatesFS embed.FS

var promptTemplate = template.Must(template.ParseFS(templatesFS, "templates/"+promptTemplateName))

type promptData struct {
	JobDescription   string
	CandidateProfile string
	Marker           string
	Terminator       string
}

// BuildPrompt renders the instruction template with the job description and
// candidate profile embedded verbatim.
func BuildPrompt(req Request) (string, error) {
	var b strings.Builder
	err := promptTemplate.ExecuteTemplate(&b, promptTemplateName, promptData{
		JobDescription:   req.JobDescription,
		CandidateProfile: req.CandidateProfile,
		Marker:           Marker,
		Terminator:       Terminator,
	})
	if err != nil {
		return "", fmt.Errorf("render %s prompt template: %w", promptTemplateName, err)
	}

	return b.String(), nil
}
