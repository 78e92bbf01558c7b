package pipeline

import (
	"github.com/sells-group/kommo-bridge/internal/defs"
	"github.com/sells-group/kommo-bridge/internal/normalize"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// ValueKind discriminates the translated value of a custom field.
type ValueKind int

const (
	// KindRaw covers text, url, numeric, date and every unknown type.
	KindRaw ValueKind = iota
	// KindEnumRef is a single select value resolved through the enum map.
	KindEnumRef
	// KindMultiEnumRef is a multiselect: parallel id and label lists.
	KindMultiEnumRef
)

// TranslatedValue is the closed result of translating one field's values.
// Exactly the fields for its Kind are populated.
type TranslatedValue struct {
	Kind ValueKind

	// KindRaw: the collected non-null values; a single scalar, a slice when
	// the field carried several values, or "" when it carried none.
	Raw any

	// KindEnumRef (and the value slot of KindMultiEnumRef)
	EnumID    any    // the enum_id slot exactly as received; nil when absent
	EnumLabel string // "" when the enum id did not resolve
	Scalar    any    // the raw value slot; first raw value for multiselects

	// KindMultiEnumRef: Labels is index-aligned with EnumIDs; an unresolved
	// id keeps an empty-string slot so positions stay paired.
	EnumIDs []string
	Labels  []string
}

// TranslatedField is one custom field after definition lookup and value
// translation.
type TranslatedField struct {
	FieldID string
	Label   string
	Type    string
	Key     string
	Value   TranslatedValue
}

// TranslateFields resolves every custom field present on the lead against
// the definitions. Fields without a definition still translate, under the
// synthetic CF_<id> label with an empty type.
func TranslateFields(cfs []kommo.CustomField, d *defs.Definitions) []TranslatedField {
	out := make([]TranslatedField, 0, len(cfs))
	for _, cf := range cfs {
		fieldType := d.TypeOf(cf.ID)
		label, ok := d.LabelOf(cf.ID)
		if !ok || label == "" {
			label = "CF_" + cf.ID
		}

		tf := TranslatedField{
			FieldID: cf.ID,
			Label:   label,
			Type:    fieldType,
			Key:     normalize.Keyify(label),
		}

		switch fieldType {
		case "select":
			first := cf.First()
			v := TranslatedValue{Kind: KindEnumRef, EnumID: first.EnumID, Scalar: first.Value}
			if key := normalize.ToString(first.EnumID); key != "" {
				if lbl, ok := d.EnumLabel(cf.ID, key); ok {
					v.EnumLabel = lbl
				}
			}
			tf.Value = v
		case "multiselect":
			v := TranslatedValue{Kind: KindMultiEnumRef}
			for _, slot := range cf.Values {
				if slot.Value != nil && v.Scalar == nil {
					v.Scalar = slot.Value
				}
				id := normalize.ToString(slot.EnumID)
				if id == "" {
					continue
				}
				lbl, _ := d.EnumLabel(cf.ID, id)
				v.EnumIDs = append(v.EnumIDs, id)
				v.Labels = append(v.Labels, lbl)
			}
			tf.Value = v
		default:
			var raws []any
			for _, slot := range cf.Values {
				if slot.Value != nil {
					raws = append(raws, slot.Value)
				}
			}
			v := TranslatedValue{Kind: KindRaw}
			switch len(raws) {
			case 0:
				v.Raw = ""
			case 1:
				v.Raw = raws[0]
			default:
				v.Raw = raws
			}
			tf.Value = v
		}
		out = append(out, tf)
	}
	return out
}

// Apply writes the field's pretty key pair(s) into the mapeo object:
// <Key>_Id/<Key>_Nombre/<Key>_Value for selects, <Key>_Ids/<Key>_Nombres for
// multiselects, the bare <Key> otherwise.
func (t TranslatedField) Apply(mapeo map[string]any) {
	switch t.Value.Kind {
	case KindEnumRef:
		mapeo[t.Key+"_Id"] = t.Value.EnumID
		switch {
		case t.Value.EnumLabel != "":
			mapeo[t.Key+"_Nombre"] = t.Value.EnumLabel
		case t.Value.Scalar != nil:
			mapeo[t.Key+"_Nombre"] = t.Value.Scalar
		default:
			mapeo[t.Key+"_Nombre"] = ""
		}
		if t.Value.Scalar != nil {
			mapeo[t.Key+"_Value"] = t.Value.Scalar
		} else {
			mapeo[t.Key+"_Value"] = ""
		}
	case KindMultiEnumRef:
		ids := t.Value.EnumIDs
		if ids == nil {
			ids = []string{}
		}
		labels := t.Value.Labels
		if labels == nil {
			labels = []string{}
		}
		mapeo[t.Key+"_Ids"] = ids
		mapeo[t.Key+"_Nombres"] = labels
	default:
		mapeo[t.Key] = t.Value.Raw
	}
}

// Pretty renders the per-field descriptor for the fields_pretty output list.
func (t TranslatedField) Pretty() map[string]any {
	out := map[string]any{
		"field_id": t.FieldID,
		"name":     t.Label,
		"type":     t.Type,
	}
	switch t.Value.Kind {
	case KindEnumRef:
		out["value"] = t.Value.Scalar
		out["enum_id"] = t.Value.EnumID
		if t.Value.EnumLabel != "" {
			out["enum_name"] = t.Value.EnumLabel
		} else {
			out["enum_name"] = nil
		}
	case KindMultiEnumRef:
		ids := t.Value.EnumIDs
		if ids == nil {
			ids = []string{}
		}
		labels := t.Value.Labels
		if labels == nil {
			labels = []string{}
		}
		out["enum_ids"] = ids
		out["enum_names"] = labels
		out["value"] = t.Value.Scalar
	default:
		if t.Type == "" {
			out["type"] = "text"
		}
		out["value"] = t.Value.Raw
	}
	return out
}

// StringValue flattens the translated value to a display string: the enum
// label (or raw value) for selects, the first label for multiselects, the
// first raw value otherwise.
func (t TranslatedField) StringValue() string {
	switch t.Value.Kind {
	case KindEnumRef:
		if t.Value.EnumLabel != "" {
			return t.Value.EnumLabel
		}
		return normalize.ToString(t.Value.Scalar)
	case KindMultiEnumRef:
		for _, lbl := range t.Value.Labels {
			if lbl != "" {
				return lbl
			}
		}
		return ""
	default:
		if list, ok := t.Value.Raw.([]any); ok {
			if len(list) > 0 {
				return normalize.ToString(list[0])
			}
			return ""
		}
		return normalize.ToString(t.Value.Raw)
	}
}
