package render

import (
	"github.com/goliatone/go-sections/internal/settings"
	"github.com/goliatone/go-sections/internal/templates"
)

// sectionContext is built fresh for every render call.
type sectionContext struct {
	id     string
	typ    string
	values map[string]any
	blocks []map[string]any
	order  []string
	drift  bool
}

func (e *Engine) buildSectionContext(tpl *templates.SectionTemplate, instance SectionInstance, instanceID string) sectionContext {
	values := e.registry.ApplyDefaults(tpl.Schema.Settings, settings.Normalize(instance.Settings))

	order := RenderBlockOrder(instance)
	_, drift := RepairBlockOrder(instance)
	if limit := tpl.Schema.MaxBlocks; limit != nil && *limit >= 0 && len(order) > *limit {
		order = order[:*limit]
	}

	blocks := make([]map[string]any, 0, len(order))
	for i, blockID := range order {
		block := instance.Blocks[blockID]
		blockValues := settings.Normalize(block.Settings)
		if descriptor, ok := tpl.Schema.Block(block.Type); ok {
			blockValues = e.registry.ApplyDefaults(descriptor.Settings, blockValues)
		}
		blocks = append(blocks, map[string]any{
			"id":       blockID,
			"type":     block.Type,
			"settings": blockValues,
			"index":    i + 1,
			"index0":   i,
			"first":    i == 0,
			"last":     i == len(order)-1,
		})
	}

	return sectionContext{
		id:     instanceID,
		typ:    tpl.Type,
		values: values,
		blocks: blocks,
		order:  order,
		drift:  drift,
	}
}

func (c sectionContext) data() map[string]any {
	return map[string]any{
		"id":           c.id,
		"type":         c.typ,
		"settings":     c.values,
		"blocks":       c.blocks,
		"block_order":  c.order,
		"blocks_count": len(c.blocks),
	}
}

func blockData(blockID string, block BlockInstance, values map[string]any) map[string]any {
	return map[string]any{
		"id":       blockID,
		"type":     block.Type,
		"settings": values,
		"index":    1,
		"index0":   0,
		"first":    true,
		"last":     true,
	}
}
