package render_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-sections/internal/render"
	"github.com/goliatone/go-sections/internal/templates"
)

func presetTemplate() *templates.SectionTemplate {
	return &templates.SectionTemplate{
		Type: "hero",
		Presets: []templates.Preset{
			{
				Name:     "Hero",
				Settings: map[string]any{"heading": "Welcome"},
				Blocks: []templates.PresetBlock{
					{Type: "button", Settings: map[string]any{"label": "Shop"}},
					{Type: "button", Settings: map[string]any{"label": "Learn"}},
					{Type: "image"},
				},
			},
			{Name: "Minimal"},
		},
	}
}

func TestInstanceFromPreset(t *testing.T) {
	instance, err := render.InstanceFromPreset(presetTemplate(), "")
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	if instance.Type != "hero" || instance.Settings["heading"] != "Welcome" {
		t.Fatalf("unexpected instance %+v", instance)
	}
	if want := []string{"button-1", "button-2", "image-1"}; !reflect.DeepEqual(instance.BlockOrder, want) {
		t.Fatalf("expected order %v, got %v", want, instance.BlockOrder)
	}
	if instance.Blocks["button-2"].Settings["label"] != "Learn" {
		t.Fatalf("unexpected block settings %+v", instance.Blocks)
	}

	minimal, err := render.InstanceFromPreset(presetTemplate(), "minimal")
	if err != nil {
		t.Fatalf("minimal: %v", err)
	}
	if len(minimal.Blocks) != 0 || minimal.Settings == nil {
		t.Fatalf("expected empty minimal instance, got %+v", minimal)
	}

	if _, err := render.InstanceFromPreset(presetTemplate(), "nope"); !errors.Is(err, render.ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}

func TestInstanceFromPresetDoesNotAliasTemplate(t *testing.T) {
	tpl := presetTemplate()
	instance, err := render.InstanceFromPreset(tpl, "Hero")
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	instance.Settings["heading"] = "changed"
	if tpl.Presets[0].Settings["heading"] != "Welcome" {
		t.Fatalf("preset settings were mutated")
	}
}

func TestPresetInstanceRendersThroughEngine(t *testing.T) {
	f := newFixture(t)
	c := blocksCandidate()
	c.Presets = []templates.Preset{{
		Name:     "Three slides",
		Settings: map[string]any{"heading": "Slides"},
		Blocks:   []templates.PresetBlock{{Type: "slide"}, {Type: "slide", Settings: map[string]any{"label": "Second"}}},
	}}
	tpl := f.save(t, c)

	instance, err := render.InstanceFromPreset(tpl, "")
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	html := f.engine.RenderSection(context.Background(), tenant, instance, "preview")
	if !strings.Contains(html, "<span>1:Untitled</span>") || !strings.Contains(html, "<span>2:Second</span>") {
		t.Fatalf("unexpected preset render %s", html)
	}
}
