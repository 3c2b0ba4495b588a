package snippets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-sections/internal/identity"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// Service manages tenant snippets.
type Service interface {
	// Put stores markup without ever overwriting different content: a key
	// collision is resolved by writing to the lowest free key-N.
	Put(ctx context.Context, input PutInput) (*PutResult, error)
	// Replace overwrites the markup at an exact key, creating it if needed.
	Replace(ctx context.Context, input ReplaceInput) (*Snippet, error)
	Get(ctx context.Context, tenantID, key string) (*Snippet, error)
	List(ctx context.Context, tenantID string) ([]*Snippet, error)
	Delete(ctx context.Context, tenantID, key string) error
	interfaces.SnippetResolver
}

var (
	ErrRepositoryRequired = errors.New("snippets: repository required")
	ErrTenantRequired     = errors.New("snippets: tenant id required")
	ErrKeyInvalid         = errors.New("snippets: key invalid")
	ErrKeySpaceExhausted  = errors.New("snippets: no free suffixed key")
	ErrSnippetNotFound    = errors.New("snippets: snippet not found")
)

const maxSuffix = 1000

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-./]*$`)

// WriteHook is called with the tenant id after any snippet write.
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

// WithLogger sets the logger used for collision and write events.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWriteHook registers a hook run after every create, replace or delete.
func WithWriteHook(hook WriteHook) ServiceOption {
	return func(s *service) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

type service struct {
	repo   SnippetRepository
	now    func() time.Time
	logger interfaces.Logger
	hooks  []WriteHook

	// writes serialises key allocation so two concurrent Puts cannot claim
	// the same suffix.
	writes sync.Mutex
}

// NewService constructs a snippet service.
func NewService(repo SnippetRepository, opts ...ServiceOption) Service {
	if repo == nil {
		panic(ErrRepositoryRequired)
	}
	s := &service{
		repo:   repo,
		now:    time.Now,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Put(ctx context.Context, input PutInput) (*PutResult, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	key, err := resolveKey(input.Key, input.Name)
	if err != nil {
		return nil, err
	}
	checksum := Checksum(input.Markup)

	s.writes.Lock()
	defer s.writes.Unlock()

	candidate := key
	for n := 0; n <= maxSuffix; n++ {
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d", key, n)
		}
		existing, err := s.repo.GetByID(ctx, identity.SnippetUUID(tenantID, candidate))
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if existing != nil && err == nil {
			if existing.Checksum == checksum {
				return &PutResult{Snippet: existing, Outcome: OutcomeUnchanged, RequestedKey: key}, nil
			}
			continue
		}

		record, err := s.create(ctx, tenantID, candidate, input.Name, input.Description, input.Markup)
		if err != nil {
			return nil, err
		}
		outcome := OutcomeCreated
		if n > 0 {
			outcome = OutcomeRenamed
			logging.WithTenant(s.logger, tenantID).Info("snippets.put.collision_renamed",
				"requested_key", key,
				"stored_key", candidate,
			)
		}
		s.notify(tenantID)
		return &PutResult{Snippet: record, Outcome: outcome, RequestedKey: key}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrKeySpaceExhausted, key)
}

func (s *service) Replace(ctx context.Context, input ReplaceInput) (*Snippet, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	key, err := resolveKey(input.Key, input.Name)
	if err != nil {
		return nil, err
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	existing, err := s.repo.GetByID(ctx, identity.SnippetUUID(tenantID, key))
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing == nil || err != nil {
		record, err := s.create(ctx, tenantID, key, input.Name, input.Description, input.Markup)
		if err != nil {
			return nil, err
		}
		s.notify(tenantID)
		return record, nil
	}

	checksum := Checksum(input.Markup)
	if existing.Checksum == checksum && existing.Name == displayName(input.Name, key) && existing.Description == input.Description {
		return existing, nil
	}
	existing.Name = displayName(input.Name, key)
	existing.Description = input.Description
	existing.Markup = input.Markup
	existing.Checksum = checksum
	existing.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	s.notify(tenantID)
	return updated, nil
}

func (s *service) Get(ctx context.Context, tenantID, key string) (*Snippet, error) {
	key = normalizeKey(key)
	record, err := s.repo.GetByID(ctx, identity.SnippetUUID(tenantID, key))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnippetNotFound, key)
		}
		return nil, err
	}
	return record, nil
}

// Resolve implements interfaces.SnippetResolver. Lookup failures of any
// kind report ok=false so an include renders empty.
func (s *service) Resolve(ctx context.Context, tenantID, key string) (string, bool) {
	record, err := s.Get(ctx, tenantID, key)
	if err != nil {
		if !errors.Is(err, ErrSnippetNotFound) {
			logging.WithTenant(s.logger, tenantID).Warn("snippets.resolve.failed", "key", key, "error", err)
		}
		return "", false
	}
	return record.Markup, true
}

func (s *service) List(ctx context.Context, tenantID string) ([]*Snippet, error) {
	return s.repo.ListByTenant(ctx, strings.TrimSpace(tenantID))
}

func (s *service) Delete(ctx context.Context, tenantID, key string) error {
	s.writes.Lock()
	defer s.writes.Unlock()

	if err := s.repo.Delete(ctx, identity.SnippetUUID(tenantID, normalizeKey(key))); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrSnippetNotFound, key)
		}
		return err
	}
	s.notify(strings.TrimSpace(tenantID))
	return nil
}

func (s *service) create(ctx context.Context, tenantID, key, name, description, markup string) (*Snippet, error) {
	now := s.now().UTC()
	return s.repo.Create(ctx, &Snippet{
		ID:          identity.SnippetUUID(tenantID, key),
		TenantID:    tenantID,
		Key:         key,
		Name:        displayName(name, key),
		Description: description,
		Markup:      markup,
		Checksum:    Checksum(markup),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *service) notify(tenantID string) {
	for _, hook := range s.hooks {
		hook(tenantID)
	}
}

// Checksum returns the content hash used to detect byte-identical markup.
func Checksum(markup string) string {
	sum := sha256.Sum256([]byte(markup))
	return hex.EncodeToString(sum[:])
}

// ValidateKey reports whether key is usable as a snippet key.
func ValidateKey(key string) error {
	err := validation.Validate(key,
		validation.Required,
		validation.Length(1, 128),
		validation.Match(keyPattern),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrKeyInvalid, key, err)
	}
	return nil
}

func resolveKey(key, name string) (string, error) {
	key = normalizeKey(key)
	if key == "" && strings.TrimSpace(name) != "" {
		derived, err := slug.Normalize(name)
		if err != nil {
			return "", fmt.Errorf("%w: derive from name %q: %v", ErrKeyInvalid, name, err)
		}
		key = normalizeKey(derived)
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// NormalizeKey trims and lowercases a key the way Put stores it.
func NormalizeKey(key string) string {
	return normalizeKey(key)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func displayName(name, key string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return key
}

func isNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
