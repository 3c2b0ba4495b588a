package templates

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-sections/internal/settings"
	"github.com/goliatone/go-sections/internal/snippets"
)

// SectionTemplate is the stored definition section instances render against.
// It is identified by (TenantID, Type).
type SectionTemplate struct {
	bun.BaseModel `bun:"table:section_templates,alias:st"`

	ID             uuid.UUID         `bun:",pk,type:uuid" json:"id"`
	TenantID       string            `bun:"tenant_id,notnull" json:"tenant_id"`
	Type           string            `bun:"section_type,notnull" json:"type"`
	Name           string            `bun:"name,notnull" json:"name"`
	Schema         Schema            `bun:"schema,type:jsonb,notnull" json:"schema"`
	Markup         string            `bun:"markup,notnull" json:"markup"`
	Stylesheet     string            `bun:"stylesheet,notnull" json:"stylesheet"`
	Snippets       map[string]string `bun:"snippets,type:jsonb" json:"snippets,omitempty"`
	BlockTemplates map[string]string `bun:"block_templates,type:jsonb" json:"block_templates,omitempty"`
	Presets        []Preset          `bun:"presets,type:jsonb" json:"presets,omitempty"`
	Settings       map[string]any    `bun:"settings,type:jsonb" json:"settings,omitempty"`
	Checksum       string            `bun:"checksum,notnull" json:"checksum"`
	CreatedAt      time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time         `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Schema lists the settings a section exposes and the blocks it accepts.
type Schema struct {
	Name      string            `json:"name,omitempty"`
	Settings  []settings.Field  `json:"settings"`
	Blocks    []BlockDescriptor `json:"blocks,omitempty"`
	MaxBlocks *int              `json:"max_blocks,omitempty"`
	Presets   []Preset          `json:"presets,omitempty"`
}

// UnmarshalJSON accepts both max_blocks and maxBlocks.
func (s *Schema) UnmarshalJSON(data []byte) error {
	type plain Schema
	var decoded struct {
		plain
		MaxBlocksCamel *int `json:"maxBlocks,omitempty"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = Schema(decoded.plain)
	if s.MaxBlocks == nil && decoded.MaxBlocksCamel != nil {
		s.MaxBlocks = decoded.MaxBlocksCamel
	}
	return nil
}

// Block returns the descriptor for a block type.
func (s Schema) Block(blockType string) (BlockDescriptor, bool) {
	for _, block := range s.Blocks {
		if block.Type == blockType {
			return block, true
		}
	}
	return BlockDescriptor{}, false
}

// BlockDescriptor declares a block type nested inside a section.
type BlockDescriptor struct {
	Type     string           `json:"type"`
	Name     string           `json:"name"`
	Settings []settings.Field `json:"settings"`
	Limit    *int             `json:"limit,omitempty"`
}

// Preset is a named default bundle of section settings and blocks.
type Preset struct {
	Name     string         `json:"name"`
	Category string         `json:"category,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
	Blocks   []PresetBlock  `json:"blocks,omitempty"`
}

// PresetBlock is a block seeded by a preset.
type PresetBlock struct {
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Candidate is an authored template awaiting acceptance. Schema, Markup,
// Stylesheet and Snippets are loosely typed so mis-shaped payloads decoded
// from JSON reach the validator instead of failing at decode time.
type Candidate struct {
	Type           string            `json:"type"`
	Name           string            `json:"name,omitempty"`
	Schema         any               `json:"schema"`
	Markup         any               `json:"markup"`
	Stylesheet     any               `json:"stylesheet"`
	Snippets       any               `json:"snippets,omitempty"`
	BlockTemplates map[string]string `json:"block_templates,omitempty"`
	Presets        []Preset          `json:"presets,omitempty"`
	Settings       map[string]any    `json:"settings,omitempty"`
}

// Outcome reports what Save did with a candidate.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// SaveInput submits a candidate for a tenant.
type SaveInput struct {
	TenantID  string
	Candidate Candidate
}

// SaveResult carries the stored template and the snippet writes it caused.
type SaveResult struct {
	Template *SectionTemplate
	Outcome  Outcome
	Snippets []*snippets.PutResult
}
