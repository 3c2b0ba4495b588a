package templatescmd_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-sections/internal/commands"
	"github.com/goliatone/go-sections/internal/commands/templatescmd"
	"github.com/goliatone/go-sections/internal/templates"
)

type stubRenderer struct {
	invalidated []string
	checkErr    error
}

func (s *stubRenderer) Check(context.Context, string, *templates.SectionTemplate) error {
	return s.checkErr
}

func (s *stubRenderer) Invalidate(tenantID string) {
	s.invalidated = append(s.invalidated, tenantID)
}

func validCandidate(markup string) templates.Candidate {
	return templates.Candidate{
		Type: "hero",
		Schema: map[string]any{"settings": []any{
			map[string]any{"id": "heading", "type": "text", "label": "Heading"},
		}},
		Markup:     markup,
		Stylesheet: "",
	}
}

func TestSubmitTemplateCommandValidate(t *testing.T) {
	cases := map[string]templatescmd.SubmitTemplateCommand{
		"blank tenant":   {TenantID: "  ", Candidate: validCandidate("x")},
		"unknown source": {TenantID: "shop-1", Source: "robot"},
	}
	for name, cmd := range cases {
		if err := cmd.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := (templatescmd.SubmitTemplateCommand{TenantID: "shop-1", Source: templatescmd.SourceAI}).Validate(); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}
}

func TestSubmitTemplateHandlerSavesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	svc := templates.NewService(templates.NewMemoryTemplateRepository())
	renderer := &stubRenderer{}
	handler := templatescmd.NewSubmitTemplateHandler(svc, renderer, nil)

	cmd := templatescmd.SubmitTemplateCommand{TenantID: "shop-1", Candidate: validCandidate("{{ section.settings.heading }}"), Source: templatescmd.SourceAI}
	result, err := handler.Submit(ctx, cmd)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome != templates.OutcomeCreated || result.Source != templatescmd.SourceAI || len(result.Warnings) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(renderer.invalidated) != 1 || renderer.invalidated[0] != "shop-1" {
		t.Fatalf("expected tenant invalidation, got %v", renderer.invalidated)
	}

	again, err := handler.Submit(ctx, cmd)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if again.Outcome != templates.OutcomeUnchanged || len(renderer.invalidated) != 1 {
		t.Fatalf("expected unchanged resubmission without invalidation, got %s %v", again.Outcome, renderer.invalidated)
	}

	if err := handler.Execute(ctx, cmd); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestSubmitTemplateHandlerReportsCompileWarnings(t *testing.T) {
	svc := templates.NewService(templates.NewMemoryTemplateRepository())
	renderer := &stubRenderer{checkErr: errors.Join(errors.New("markup: bad tag"), errors.New("block slide: bad filter"))}
	handler := templatescmd.NewSubmitTemplateHandler(svc, renderer, nil)

	result, err := handler.Submit(context.Background(), templatescmd.SubmitTemplateCommand{TenantID: "shop-1", Candidate: validCandidate("{% if %}")})
	if err != nil {
		t.Fatalf("compile problems must not reject the candidate: %v", err)
	}
	if len(result.Warnings) != 2 || result.Warnings[0] != "markup: bad tag" {
		t.Fatalf("unexpected warnings %v", result.Warnings)
	}
	if _, err := svc.Get(context.Background(), "shop-1", "hero"); err != nil {
		t.Fatalf("expected template stored: %v", err)
	}
}

func TestSubmitTemplateHandlerRejectsMalformedCandidates(t *testing.T) {
	svc := templates.NewService(templates.NewMemoryTemplateRepository())
	renderer := &stubRenderer{}
	handler := templatescmd.NewSubmitTemplateHandler(svc, renderer, nil)

	candidate := validCandidate("x")
	candidate.Stylesheet = 42
	_, err := handler.Submit(context.Background(), templatescmd.SubmitTemplateCommand{TenantID: "shop-1", Candidate: candidate})
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) || !commands.IsValidationError(err) {
		t.Fatalf("expected validation category, got %v", err)
	}
	var validationErr *templates.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Rule != templates.RuleStylesheet {
		t.Fatalf("expected stylesheet rule, got %v", err)
	}
	if len(renderer.invalidated) != 0 {
		t.Fatalf("rejected candidates must not invalidate")
	}
	if _, err := svc.Get(context.Background(), "shop-1", "hero"); !errors.Is(err, templates.ErrTemplateNotFound) {
		t.Fatalf("expected nothing stored, got %v", err)
	}
}

func TestDeleteTemplateHandler(t *testing.T) {
	ctx := context.Background()
	svc := templates.NewService(templates.NewMemoryTemplateRepository())
	renderer := &stubRenderer{}
	if _, err := templatescmd.NewSubmitTemplateHandler(svc, nil, nil).Submit(ctx, templatescmd.SubmitTemplateCommand{TenantID: "shop-1", Candidate: validCandidate("x")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	handler := templatescmd.NewDeleteTemplateHandler(svc, renderer, nil)
	if err := handler.Execute(ctx, templatescmd.DeleteTemplateCommand{TenantID: "shop-1"}); !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected missing type to fail validation, got %v", err)
	}
	if err := handler.Execute(ctx, templatescmd.DeleteTemplateCommand{TenantID: "shop-1", SectionType: "hero"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(renderer.invalidated) != 1 {
		t.Fatalf("expected invalidation after delete")
	}
	err := handler.Execute(ctx, templatescmd.DeleteTemplateCommand{TenantID: "shop-1", SectionType: "hero"})
	if !errors.Is(err, templates.ErrTemplateNotFound) || !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected wrapped not found, got %v", err)
	}
}
