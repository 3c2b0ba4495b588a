package settings

// ApplyDefaults resolves every declared field against values and returns a
// new map. Keys in values without a descriptor are kept as they are.
func (r *Registry) ApplyDefaults(fields []Field, values map[string]any) map[string]any {
	out := make(map[string]any, len(values)+len(fields))
	for key, value := range values {
		out[key] = value
	}
	for _, field := range fields {
		if field.ID == "" {
			continue
		}
		raw, present := values[field.ID]
		resolved := r.strategyFor(field.Type).Resolve(field, raw, present)
		if resolved == nil {
			delete(out, field.ID)
			continue
		}
		out[field.ID] = resolved
	}
	return out
}
