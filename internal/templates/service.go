package templates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-sections/internal/identity"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// Service manages section templates. Save is the only way a template enters
// the store and always runs the validator first.
type Service interface {
	Save(ctx context.Context, input SaveInput) (*SaveResult, error)
	Get(ctx context.Context, tenantID, sectionType string) (*SectionTemplate, error)
	List(ctx context.Context, tenantID string) ([]*SectionTemplate, error)
	Delete(ctx context.Context, tenantID, sectionType string) error
}

var (
	ErrRepositoryRequired = errors.New("templates: repository required")
	ErrTenantRequired     = errors.New("templates: tenant id required")
	ErrTypeRequired       = errors.New("templates: section type required")
	ErrTemplateNotFound   = errors.New("templates: template not found")
)

// WriteHook is called with the tenant id after a template is created, updated
// or deleted.
type WriteHook func(tenantID string)

// ServiceOption configures service behaviour.
type ServiceOption func(*service)

// WithNow overrides the time source (primarily for tests).
func WithNow(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for save outcomes.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithValidator replaces the default non-strict validator.
func WithValidator(validator *Validator) ServiceOption {
	return func(s *service) {
		if validator != nil {
			s.validator = validator
		}
	}
}

// WithSnippetStore persists candidate snippets to the tenant snippet store.
func WithSnippetStore(store snippets.Service) ServiceOption {
	return func(s *service) {
		s.snippets = store
	}
}

// WithWriteHook registers a hook run after every template write.
func WithWriteHook(hook WriteHook) ServiceOption {
	return func(s *service) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

type service struct {
	repo      TemplateRepository
	validator *Validator
	snippets  snippets.Service
	now       func() time.Time
	logger    interfaces.Logger
	hooks     []WriteHook

	writes sync.Mutex
}

// NewService constructs a template service.
func NewService(repo TemplateRepository, opts ...ServiceOption) Service {
	if repo == nil {
		panic(ErrRepositoryRequired)
	}
	s := &service{
		repo:      repo,
		validator: NewValidator(nil),
		now:       time.Now,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Save(ctx context.Context, input SaveInput) (*SaveResult, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	candidate := input.Candidate
	sectionType, err := resolveType(candidate.Type, candidate.Name)
	if err != nil {
		return nil, err
	}
	logger := logging.WithFields(logging.WithTenant(s.logger, tenantID), map[string]any{"section_type": sectionType})

	accepted, err := s.validator.Accept(candidate)
	if err != nil {
		if validationErr, ok := AsValidationError(err); ok {
			logger.Warn("templates.save.rejected",
				"rule", validationErr.Rule,
				"path", validationErr.Path,
				"reason", validationErr.Reason,
			)
		}
		return nil, err
	}

	record := s.buildRecord(tenantID, sectionType, candidate, accepted)

	s.writes.Lock()
	defer s.writes.Unlock()

	existing, err := s.repo.GetByID(ctx, record.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	found := err == nil && existing != nil
	if found && existing.Checksum == record.Checksum {
		logger.Debug("templates.save.unchanged")
		return &SaveResult{Template: existing, Outcome: OutcomeUnchanged}, nil
	}

	puts, err := s.putSnippets(ctx, tenantID, accepted.Snippets)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record.UpdatedAt = now
	var (
		stored  *SectionTemplate
		outcome Outcome
	)
	if found {
		record.CreatedAt = existing.CreatedAt
		stored, err = s.repo.Update(ctx, record)
		outcome = OutcomeUpdated
	} else {
		record.CreatedAt = now
		stored, err = s.repo.Create(ctx, record)
		outcome = OutcomeCreated
	}
	if err != nil {
		return nil, err
	}

	logger.Info("templates.save."+string(outcome), "snippets", len(puts))
	s.notify(tenantID)
	return &SaveResult{Template: stored, Outcome: outcome, Snippets: puts}, nil
}

func (s *service) buildRecord(tenantID, sectionType string, candidate Candidate, accepted *Accepted) *SectionTemplate {
	presets := candidate.Presets
	if len(presets) == 0 {
		presets = accepted.Schema.Presets
	}
	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		name = strings.TrimSpace(accepted.Schema.Name)
	}
	if name == "" {
		name = sectionType
	}
	record := &SectionTemplate{
		ID:             identity.TemplateUUID(tenantID, sectionType),
		TenantID:       tenantID,
		Type:           sectionType,
		Name:           name,
		Schema:         accepted.Schema,
		Markup:         accepted.Markup,
		Stylesheet:     accepted.Stylesheet,
		Snippets:       accepted.Snippets,
		BlockTemplates: candidate.BlockTemplates,
		Presets:        presets,
		Settings:       candidate.Settings,
	}
	record.Checksum = Checksum(record)
	return record
}

func (s *service) putSnippets(ctx context.Context, tenantID string, sources map[string]string) ([]*snippets.PutResult, error) {
	if s.snippets == nil || len(sources) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(sources))
	for key := range sources {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	results := make([]*snippets.PutResult, 0, len(keys))
	for _, key := range keys {
		result, err := s.snippets.Put(ctx, snippets.PutInput{
			TenantID: tenantID,
			Key:      key,
			Markup:   sources[key],
		})
		if err != nil {
			return nil, fmt.Errorf("templates: store snippet %q: %w", key, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *service) Get(ctx context.Context, tenantID, sectionType string) (*SectionTemplate, error) {
	sectionType = normalizeType(sectionType)
	record, err := s.repo.GetByID(ctx, identity.TemplateUUID(tenantID, sectionType))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, sectionType)
		}
		return nil, err
	}
	return record, nil
}

func (s *service) List(ctx context.Context, tenantID string) ([]*SectionTemplate, error) {
	return s.repo.ListByTenant(ctx, strings.TrimSpace(tenantID))
}

func (s *service) Delete(ctx context.Context, tenantID, sectionType string) error {
	sectionType = normalizeType(sectionType)

	s.writes.Lock()
	defer s.writes.Unlock()

	if err := s.repo.Delete(ctx, identity.TemplateUUID(tenantID, sectionType)); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, sectionType)
		}
		return err
	}
	s.notify(strings.TrimSpace(tenantID))
	return nil
}

func (s *service) notify(tenantID string) {
	for _, hook := range s.hooks {
		hook(tenantID)
	}
}

// Checksum hashes the stored payload of a template. Identifiers and
// timestamps are excluded so a resubmitted identical candidate matches.
func Checksum(template *SectionTemplate) string {
	payload := struct {
		Name           string            `json:"name"`
		Schema         Schema            `json:"schema"`
		Markup         string            `json:"markup"`
		Stylesheet     string            `json:"stylesheet"`
		Snippets       map[string]string `json:"snippets"`
		BlockTemplates map[string]string `json:"block_templates"`
		Presets        []Preset          `json:"presets"`
		Settings       map[string]any    `json:"settings"`
	}{
		Name:           template.Name,
		Schema:         template.Schema,
		Markup:         template.Markup,
		Stylesheet:     template.Stylesheet,
		Snippets:       template.Snippets,
		BlockTemplates: template.BlockTemplates,
		Presets:        template.Presets,
		Settings:       template.Settings,
	}
	encoded, _ := json.Marshal(payload)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

func resolveType(sectionType, name string) (string, error) {
	sectionType = normalizeType(sectionType)
	if sectionType == "" && strings.TrimSpace(name) != "" {
		derived, err := slug.Normalize(name)
		if err != nil {
			return "", fmt.Errorf("%w: derive from name %q: %v", ErrTypeRequired, name, err)
		}
		sectionType = normalizeType(derived)
	}
	if sectionType == "" {
		return "", ErrTypeRequired
	}
	return sectionType, nil
}

func normalizeType(sectionType string) string {
	return strings.ToLower(strings.TrimSpace(sectionType))
}

func isNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
