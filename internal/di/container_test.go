package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-sections/internal/render"
	"github.com/goliatone/go-sections/internal/runtimeconfig"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

type staticShops map[string]interfaces.Shop

func (s staticShops) Shop(_ context.Context, tenantID string) (interfaces.Shop, error) {
	shop, ok := s[tenantID]
	if !ok {
		return interfaces.Shop{}, errors.New("unknown tenant")
	}
	return shop, nil
}

func heroCandidate(markup string) templates.Candidate {
	return templates.Candidate{
		Type: "hero",
		Schema: map[string]any{"settings": []any{
			map[string]any{"id": "heading", "type": "text", "label": "Heading"},
		}},
		Markup:     markup,
		Stylesheet: "",
	}
}

func saveAndRender(t *testing.T, c *Container, tenantID, markup string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := c.Templates().Save(ctx, templates.SaveInput{TenantID: tenantID, Candidate: heroCandidate(markup)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	return c.Engine().RenderSection(ctx, tenantID, render.SectionInstance{
		Type:     "hero",
		Settings: map[string]any{"heading": "Hi"},
	}, "sec-1")
}

func TestNewContainerMemoryDefaults(t *testing.T) {
	c, err := NewContainer(context.Background(), runtimeconfig.DefaultConfig(),
		WithTenantDirectory(staticShops{"shop-1": {ID: "shop-1", Name: "Acme"}}),
	)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if c.BunDB() != nil || c.CacheService() != nil {
		t.Fatalf("expected memory storage without cache")
	}
	if c.LoggerProvider() == nil || c.Validator() == nil {
		t.Fatalf("expected logger provider and validator")
	}

	html := saveAndRender(t, c, "shop-1", "{{ section.settings.heading }} at {{ shop.name }}")
	if !strings.Contains(html, "Hi at Acme") {
		t.Fatalf("unexpected html %s", html)
	}
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = "mongo"
	if _, err := NewContainer(context.Background(), cfg); !errors.Is(err, runtimeconfig.ErrStorageDriverUnknown) {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestNewContainerOpensSQLiteWithCache(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = runtimeconfig.DriverSQLite3
	cfg.Storage.DSN = fmt.Sprintf("file:di_container_%d?mode=memory&cache=shared", time.Now().UnixNano())
	cfg.Cache.Enabled = true

	c, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if c.BunDB() == nil || c.CacheService() == nil {
		t.Fatalf("expected database and cache to be configured")
	}
	if html := saveAndRender(t, c, "shop-1", "<b>{{ section.settings.heading }}</b>"); !strings.Contains(html, "<b>Hi</b>") {
		t.Fatalf("unexpected html %s", html)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSnippetWritesInvalidateTenantInterpreter(t *testing.T) {
	c, err := NewContainer(context.Background(), runtimeconfig.DefaultConfig())
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	ctx := context.Background()

	if _, err := c.Snippets().Put(ctx, snippets.PutInput{TenantID: "shop-1", Key: "badge", Markup: "<i>v1</i>"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if html := saveAndRender(t, c, "shop-1", `{% render "badge" %}`); !strings.Contains(html, "<i>v1</i>") {
		t.Fatalf("unexpected html %s", html)
	}
	if c.Engine().Interpreters().Len() != 1 {
		t.Fatalf("expected a cached interpreter")
	}

	if _, err := c.Snippets().Replace(ctx, snippets.ReplaceInput{TenantID: "shop-1", Key: "badge", Markup: "<i>v2</i>"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if c.Engine().Interpreters().Len() != 0 {
		t.Fatalf("expected snippet write to drop the tenant interpreter")
	}
	html := c.Engine().RenderSection(ctx, "shop-1", render.SectionInstance{Type: "hero"}, "sec-1")
	if !strings.Contains(html, "<i>v2</i>") {
		t.Fatalf("expected refreshed snippet, got %s", html)
	}
}

func TestImportSnippetsFromConfiguredDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "promo.liquid"), []byte("---\nkey: promo\n---\n<em>Sale</em>\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := runtimeconfig.DefaultConfig()
	cfg.Snippets.Dir = dir
	cfg.Snippets.Tenant = "shop-1"
	c, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	keys, err := c.ImportSnippets(context.Background())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(keys) != 1 || keys[0] != "promo" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if source, ok := c.Snippets().Resolve(context.Background(), "shop-1", "promo"); !ok || !strings.Contains(source, "Sale") {
		t.Fatalf("expected imported snippet, got %q %v", source, ok)
	}
}

func TestWatchSnippetsRequiresDirectory(t *testing.T) {
	c, err := NewContainer(context.Background(), runtimeconfig.DefaultConfig())
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if err := c.WatchSnippets(context.Background()); !errors.Is(err, runtimeconfig.ErrSnippetWatchRequiresDir) {
		t.Fatalf("expected missing dir error, got %v", err)
	}
	if api := c.PreviewAPI(); api == nil {
		t.Fatalf("expected preview api")
	}
}
