package templatescmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-sections/internal/templates"
)

const (
	submitTemplateMessageType = "sections.templates.submit"
	deleteTemplateMessageType = "sections.templates.delete"
)

// Submission sources.
const (
	SourceHuman = "human"
	SourceAI    = "ai"
)

// SubmitTemplateCommand submits an authored section template for a tenant.
// Candidate is checked by the template validator, not by Validate.
type SubmitTemplateCommand struct {
	TenantID  string              `json:"tenant_id"`
	Candidate templates.Candidate `json:"candidate"`
	// Source records who authored the candidate: "human" or "ai".
	Source string `json:"source,omitempty"`
}

// Type implements command.Message.
func (SubmitTemplateCommand) Type() string { return submitTemplateMessageType }

// Validate checks the envelope fields before handlers execute.
func (cmd SubmitTemplateCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.TenantID, validation.By(requiredText("sections.templates.submit.tenant_required", "tenant id is required"))),
		validation.Field(&cmd.Source, validation.In(SourceHuman, SourceAI)),
	)
}

// DeleteTemplateCommand removes a stored section template.
type DeleteTemplateCommand struct {
	TenantID    string `json:"tenant_id"`
	SectionType string `json:"section_type"`
}

// Type implements command.Message.
func (DeleteTemplateCommand) Type() string { return deleteTemplateMessageType }

// Validate ensures the template key is present.
func (cmd DeleteTemplateCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.TenantID, validation.By(requiredText("sections.templates.delete.tenant_required", "tenant id is required"))),
		validation.Field(&cmd.SectionType, validation.By(requiredText("sections.templates.delete.type_required", "section type is required"))),
	)
}

func requiredText(code, message string) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		if strings.TrimSpace(text) == "" {
			return validation.NewError(code, message)
		}
		return nil
	}
}
