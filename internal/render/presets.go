package render

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/goliatone/go-sections/internal/templates"
)

// ErrPresetNotFound is returned when a template has no preset of that name.
var ErrPresetNotFound = errors.New("render: preset not found")

// InstanceFromPreset builds a section instance seeded with a preset. An
// empty name selects the first preset. Block keys are "<type>-<n>" in
// preset order.
func InstanceFromPreset(tpl *templates.SectionTemplate, presetName string) (SectionInstance, error) {
	if tpl == nil {
		return SectionInstance{}, fmt.Errorf("%w: no template", ErrPresetNotFound)
	}
	presets := tpl.Presets
	if len(presets) == 0 {
		presets = tpl.Schema.Presets
	}

	var preset *templates.Preset
	for i := range presets {
		if presetName == "" || strings.EqualFold(presets[i].Name, presetName) {
			preset = &presets[i]
			break
		}
	}
	if preset == nil {
		return SectionInstance{}, fmt.Errorf("%w: %s/%s", ErrPresetNotFound, tpl.Type, presetName)
	}

	instance := SectionInstance{
		Type:       tpl.Type,
		Settings:   maps.Clone(preset.Settings),
		Blocks:     make(map[string]BlockInstance, len(preset.Blocks)),
		BlockOrder: make([]string, 0, len(preset.Blocks)),
	}
	if instance.Settings == nil {
		instance.Settings = map[string]any{}
	}
	counts := make(map[string]int, len(preset.Blocks))
	for _, block := range preset.Blocks {
		counts[block.Type]++
		key := fmt.Sprintf("%s-%d", block.Type, counts[block.Type])
		instance.Blocks[key] = BlockInstance{Type: block.Type, Settings: maps.Clone(block.Settings)}
		instance.BlockOrder = append(instance.BlockOrder, key)
	}
	return instance, nil
}
