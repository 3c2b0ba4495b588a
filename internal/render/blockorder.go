package render

import "sort"

// RenderBlockOrder returns the blocks rendered for an instance. The declared
// order is walked as given, skipping stale and duplicate ids; blocks left out
// of it are not rendered. Only an absent order falls back to every block key,
// sorted.
func RenderBlockOrder(instance SectionInstance) []string {
	if instance.BlockOrder == nil {
		return sortedBlockKeys(instance.Blocks)
	}
	order := make([]string, 0, len(instance.BlockOrder))
	seen := make(map[string]struct{}, len(instance.BlockOrder))
	for _, id := range instance.BlockOrder {
		if _, ok := instance.Blocks[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	return order
}

func sortedBlockKeys(blocks map[string]BlockInstance) []string {
	keys := make([]string, 0, len(blocks))
	for id := range blocks {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// RepairBlockOrder returns a block order that is a permutation of the
// instance's block keys. Known ids keep their declared position, stale and
// duplicate ids are dropped, and keys missing from the order are appended in
// sorted order. changed reports whether the declared order needed repair.
func RepairBlockOrder(instance SectionInstance) (fixed []string, changed bool) {
	fixed = make([]string, 0, len(instance.Blocks))
	seen := make(map[string]struct{}, len(instance.Blocks))
	for _, id := range instance.BlockOrder {
		if _, ok := instance.Blocks[id]; !ok {
			changed = true
			continue
		}
		if _, dup := seen[id]; dup {
			changed = true
			continue
		}
		seen[id] = struct{}{}
		fixed = append(fixed, id)
	}

	missing := make([]string, 0)
	for id := range instance.Blocks {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		fixed = append(fixed, missing...)
		changed = true
	}
	return fixed, changed
}

// Repaired returns a copy of the instance with its block order repaired, for
// hosts migrating stored instances. Rendering does not apply it.
func (s SectionInstance) Repaired() SectionInstance {
	fixed, _ := RepairBlockOrder(s)
	s.BlockOrder = fixed
	return s
}
