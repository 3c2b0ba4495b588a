package templates_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
	"github.com/goliatone/go-sections/pkg/testsupport"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTemplateService(opts ...templates.ServiceOption) templates.Service {
	opts = append([]templates.ServiceOption{templates.WithNow(fixedNow)}, opts...)
	return templates.NewService(templates.NewMemoryTemplateRepository(), opts...)
}

func loadHeroCandidate(t *testing.T) templates.Candidate {
	t.Helper()
	var candidate templates.Candidate
	if err := testsupport.LoadGolden("testdata/hero_candidate.json", &candidate); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return candidate
}

func TestServiceSaveCreatesTemplate(t *testing.T) {
	ctx := context.Background()
	svc := newTemplateService()

	result, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: validCandidate()})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.Outcome != templates.OutcomeCreated {
		t.Fatalf("expected created, got %s", result.Outcome)
	}

	stored, err := svc.Get(ctx, "shop-1", "HERO")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Type != "hero" || stored.Name != "hero" {
		t.Fatalf("unexpected stored identity %q %q", stored.Type, stored.Name)
	}
	if len(stored.Schema.Settings) != 1 || stored.Schema.Settings[0].ID != "heading" {
		t.Fatalf("unexpected schema %+v", stored.Schema)
	}
	if !stored.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("expected deterministic created at, got %v", stored.CreatedAt)
	}
}

func TestServiceSaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	writes := 0
	svc := newTemplateService(templates.WithWriteHook(func(string) { writes++ }))

	first, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: validCandidate()})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: validCandidate()})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.Outcome != templates.OutcomeUnchanged {
		t.Fatalf("expected unchanged, got %s", second.Outcome)
	}
	if first.Template.ID != second.Template.ID {
		t.Fatalf("expected deterministic id")
	}
	if writes != 1 {
		t.Fatalf("expected a single write notification, got %d", writes)
	}

	changed := validCandidate()
	changed.Markup = "<h2>{{ section.settings.heading }}</h2>"
	third, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: changed})
	if err != nil {
		t.Fatalf("third save: %v", err)
	}
	if third.Outcome != templates.OutcomeUpdated {
		t.Fatalf("expected updated, got %s", third.Outcome)
	}
	if writes != 2 {
		t.Fatalf("expected update to notify, got %d", writes)
	}

	list, err := svc.List(ctx, "shop-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one template, got %d", len(list))
	}
}

func TestServiceRejectsMalformedCandidate(t *testing.T) {
	ctx := context.Background()
	svc := newTemplateService()

	candidate := validCandidate()
	candidate.Schema = map[string]any{"settings": []any{map[string]any{"type": "text"}}}

	_, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: candidate})
	if !errors.Is(err, templates.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Get(ctx, "shop-1", "hero"); !errors.Is(err, templates.ErrTemplateNotFound) {
		t.Fatalf("expected rejected template to be absent, got %v", err)
	}
	list, err := svc.List(ctx, "shop-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty store, got %d templates", len(list))
	}
}

func TestServiceSaveRequiresTenantAndType(t *testing.T) {
	svc := newTemplateService()
	if _, err := svc.Save(context.Background(), templates.SaveInput{Candidate: validCandidate()}); !errors.Is(err, templates.ErrTenantRequired) {
		t.Fatalf("expected tenant required, got %v", err)
	}
	candidate := validCandidate()
	candidate.Type = ""
	if _, err := svc.Save(context.Background(), templates.SaveInput{TenantID: "t", Candidate: candidate}); !errors.Is(err, templates.ErrTypeRequired) {
		t.Fatalf("expected type required, got %v", err)
	}
}

func TestServiceSaveDerivesTypeFromName(t *testing.T) {
	svc := newTemplateService()
	candidate := validCandidate()
	candidate.Type = ""
	candidate.Name = "Featured Collection"

	result, err := svc.Save(context.Background(), templates.SaveInput{TenantID: "t", Candidate: candidate})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.Template.Type != "featured-collection" {
		t.Fatalf("unexpected derived type %q", result.Template.Type)
	}
	if result.Template.Name != "Featured Collection" {
		t.Fatalf("unexpected name %q", result.Template.Name)
	}
}

func TestServiceSavePersistsSnippetsCollisionSafe(t *testing.T) {
	ctx := context.Background()
	store := snippets.NewService(snippets.NewMemorySnippetRepository())
	if _, err := store.Put(ctx, snippets.PutInput{TenantID: "shop-1", Key: "hero-button", Markup: "<button>old</button>"}); err != nil {
		t.Fatalf("seed snippet: %v", err)
	}

	svc := newTemplateService(templates.WithSnippetStore(store))
	result, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: loadHeroCandidate(t)})
	if err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	if len(result.Snippets) != 1 {
		t.Fatalf("expected one snippet write, got %d", len(result.Snippets))
	}
	put := result.Snippets[0]
	if put.Outcome != snippets.OutcomeRenamed || put.Snippet.Key != "hero-button-1" {
		t.Fatalf("expected collision rename, got %s %q", put.Outcome, put.Snippet.Key)
	}

	original, err := store.Get(ctx, "shop-1", "hero-button")
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if original.Markup != "<button>old</button>" {
		t.Fatalf("original snippet must be untouched, got %q", original.Markup)
	}
	if result.Template.Snippets["hero-button"] == "" {
		t.Fatalf("template keeps its own snippet map")
	}
}

func TestServiceSaveRejectsUnstorableSnippetKeyBeforeWriting(t *testing.T) {
	ctx := context.Background()
	store := snippets.NewService(snippets.NewMemorySnippetRepository())
	svc := newTemplateService(templates.WithSnippetStore(store))

	c := loadHeroCandidate(t)
	c.Snippets = map[string]any{"a-card": "<b>kept out</b>", "Hero Card": "<i></i>"}
	_, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: c})
	validationErr, ok := templates.AsValidationError(err)
	if !ok || validationErr.Rule != templates.RuleSnippets {
		t.Fatalf("expected snippet rule rejection, got %v", err)
	}

	stored, err := store.List(ctx, "shop-1")
	if err != nil {
		t.Fatalf("list snippets: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected no snippets stored for a rejected candidate, got %d", len(stored))
	}
	if list, _ := svc.List(ctx, "shop-1"); len(list) != 0 {
		t.Fatalf("expected no template stored, got %d", len(list))
	}
}

func TestServiceSaveFixtureExtractsSchemaAndPresets(t *testing.T) {
	svc := newTemplateService()
	result, err := svc.Save(context.Background(), templates.SaveInput{TenantID: "shop-1", Candidate: loadHeroCandidate(t)})
	if err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	tpl := result.Template
	if tpl.Name != "Hero banner" {
		t.Fatalf("unexpected name %q", tpl.Name)
	}
	if len(tpl.Schema.Settings) != 2 || tpl.Schema.MaxBlocks == nil || *tpl.Schema.MaxBlocks != 3 {
		t.Fatalf("unexpected schema %+v", tpl.Schema)
	}
	if len(tpl.Presets) != 1 || tpl.Presets[0].Name != "Hero" {
		t.Fatalf("expected schema presets to be stored, got %+v", tpl.Presets)
	}
	if want := `<h1>{{ section.settings.heading }}</h1>`; len(tpl.Markup) < len(want) || tpl.Markup[:len(want)] != want {
		t.Fatalf("expected schema tag stripped, got %q", tpl.Markup)
	}
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTemplateService()
	if _, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: validCandidate()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.Delete(ctx, "shop-1", "hero"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "shop-1", "hero"); !errors.Is(err, templates.ErrTemplateNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestServiceTenantsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newTemplateService()
	if _, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: validCandidate()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Get(ctx, "shop-2", "hero"); !errors.Is(err, templates.ErrTemplateNotFound) {
		t.Fatalf("expected other tenant to miss, got %v", err)
	}
}

func TestSchemaAcceptsCamelCaseMaxBlocks(t *testing.T) {
	var schema templates.Schema
	if err := json.Unmarshal([]byte(`{"settings":[],"maxBlocks":4}`), &schema); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if schema.MaxBlocks == nil || *schema.MaxBlocks != 4 {
		t.Fatalf("expected maxBlocks alias, got %+v", schema.MaxBlocks)
	}
}
