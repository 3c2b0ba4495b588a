package snippets

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Snippet is a reusable markup fragment addressable per tenant by key.
type Snippet struct {
	bun.BaseModel `bun:"table:section_snippets,alias:sn"`

	ID          uuid.UUID `bun:",pk,type:uuid" json:"id"`
	TenantID    string    `bun:"tenant_id,notnull" json:"tenant_id"`
	Key         string    `bun:"snippet_key,notnull" json:"key"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description,omitempty"`
	Markup      string    `bun:"markup,notnull" json:"markup"`
	Checksum    string    `bun:"checksum,notnull" json:"checksum"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// PutOutcome reports what a Put did.
type PutOutcome string

const (
	// OutcomeCreated means the requested key was free and now holds the markup.
	OutcomeCreated PutOutcome = "created"
	// OutcomeUnchanged means a record with identical markup already existed.
	OutcomeUnchanged PutOutcome = "unchanged"
	// OutcomeRenamed means the requested key held different markup and the
	// snippet was stored under a suffixed key instead.
	OutcomeRenamed PutOutcome = "renamed"
)

// PutInput describes a snippet write.
type PutInput struct {
	TenantID    string
	Key         string
	Name        string
	Description string
	Markup      string
}

// PutResult carries the stored record and how the key was resolved.
type PutResult struct {
	Snippet      *Snippet
	Outcome      PutOutcome
	RequestedKey string
}

// ReplaceInput overwrites the markup stored at an exact key.
type ReplaceInput struct {
	TenantID    string
	Key         string
	Name        string
	Description string
	Markup      string
}
