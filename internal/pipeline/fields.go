package pipeline

import (
	"github.com/sells-group/kommo-bridge/internal/normalize"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// NormalizeFields unifies the two custom-field payload shapes into
// []kommo.CustomField with string ids: custom_fields already carries
// {id, values}, custom_fields_values (the native webhook shape) carries
// {field_id, values}. A lead with neither key yields an empty slice.
func NormalizeFields(lead kommo.Lead) []kommo.CustomField {
	if raw, ok := lead["custom_fields"].([]any); ok {
		return parseFields(raw, "id")
	}
	if raw, ok := lead["custom_fields_values"].([]any); ok {
		return parseFields(raw, "field_id")
	}
	return []kommo.CustomField{}
}

func parseFields(raw []any, idKey string) []kommo.CustomField {
	out := make([]kommo.CustomField, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cf := kommo.CustomField{ID: normalize.ToString(m[idKey])}
		if values, ok := m["values"].([]any); ok {
			cf.Values = make([]kommo.FieldValue, 0, len(values))
			for _, v := range values {
				vm, ok := v.(map[string]any)
				if !ok {
					continue
				}
				cf.Values = append(cf.Values, kommo.FieldValue{
					Value:  vm["value"],
					EnumID: vm["enum_id"],
				})
			}
		}
		out = append(out, cf)
	}
	return out
}
