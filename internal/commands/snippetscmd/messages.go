package snippetscmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	putSnippetMessageType      = "sections.snippets.put"
	importDirectoryMessageType = "sections.snippets.import_directory"
)

// PutSnippetCommand stores snippet markup without overwriting different
// content under the same key.
type PutSnippetCommand struct {
	TenantID    string `json:"tenant_id"`
	Key         string `json:"key,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Markup      string `json:"markup"`
}

// Type implements command.Message.
func (PutSnippetCommand) Type() string { return putSnippetMessageType }

// Validate requires a tenant and either a key or a name to derive one from.
func (cmd PutSnippetCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.TenantID, validation.By(requiredText("sections.snippets.put.tenant_required", "tenant id is required"))),
		validation.Field(&cmd.Key, validation.By(func(any) error {
			if strings.TrimSpace(cmd.Key) == "" && strings.TrimSpace(cmd.Name) == "" {
				return validation.NewError("sections.snippets.put.key_required", "key or name is required")
			}
			return nil
		})),
	)
}

// ImportDirectoryCommand loads the front-matter files found in Directory,
// overwriting the keys they name.
type ImportDirectoryCommand struct {
	TenantID  string `json:"tenant_id"`
	Directory string `json:"directory"`
}

// Type implements command.Message.
func (ImportDirectoryCommand) Type() string { return importDirectoryMessageType }

// Validate ensures tenant and directory are present.
func (cmd ImportDirectoryCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.TenantID, validation.By(requiredText("sections.snippets.import_directory.tenant_required", "tenant id is required"))),
		validation.Field(&cmd.Directory, validation.By(requiredText("sections.snippets.import_directory.directory_required", "directory is required"))),
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
