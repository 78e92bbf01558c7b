package kommo

import (
	"fmt"
	"strconv"
)

// Lead is a raw Kommo lead record. Webhook and API payloads disagree on
// which attributes are present and how numbers are typed, so the record is
// kept as the decoded JSON object and read through accessors; the pipeline
// never mutates a Lead in place, it merges into a new one.
type Lead map[string]any

// asString coerces a decoded JSON value to a string ("" for nil; integral
// floats render without a fractional part).
func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// ID returns the lead id as a string, or "".
func (l Lead) ID() string { return asString(l["id"]) }

// StatusID returns the pipeline status id as a string, or "".
func (l Lead) StatusID() string { return asString(l["status_id"]) }

// PipelineID returns the pipeline id as a string, or "".
func (l Lead) PipelineID() string { return asString(l["pipeline_id"]) }

// ResponsibleUserID returns the responsible user id as a string, or "".
func (l Lead) ResponsibleUserID() string {
	if v, ok := l["responsible_user_id"]; ok && v != nil {
		return asString(v)
	}
	return ""
}

// LossReasonID returns the loss reason id as a string, or "".
func (l Lead) LossReasonID() string {
	if v, ok := l["loss_reason_id"]; ok && v != nil {
		return asString(v)
	}
	return ""
}

// HasCustomFields reports whether either custom-field payload shape is present.
func (l Lead) HasCustomFields() bool {
	_, a := l["custom_fields"]
	_, b := l["custom_fields_values"]
	return a || b
}

// EmbeddedContacts returns the contact links under _embedded.contacts as
// (id, isMain) pairs, in payload order.
func (l Lead) EmbeddedContacts() []ContactLink {
	embedded, ok := l["_embedded"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := embedded["contacts"].([]any)
	if !ok {
		return nil
	}
	links := make([]ContactLink, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		isMain, _ := m["is_main"].(bool)
		links = append(links, ContactLink{ID: asString(m["id"]), IsMain: isMain})
	}
	return links
}

// Clone returns a shallow copy of the lead.
func (l Lead) Clone() Lead {
	out := make(Lead, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// ContactLink is a lead's embedded reference to a contact.
type ContactLink struct {
	ID     string
	IsMain bool
}

// CustomField is a lead custom field in the normalized shape: string id plus
// the raw value list.
type CustomField struct {
	ID     string       `json:"id"`
	Values []FieldValue `json:"values"`
}

// FieldValue is one value slot of a custom field. Value may be a string,
// number or bool depending on the field type; EnumID is set for select and
// multiselect fields.
type FieldValue struct {
	Value  any `json:"value,omitempty"`
	EnumID any `json:"enum_id,omitempty"`
}

// First returns the first value slot, or a zero slot when empty.
func (f CustomField) First() FieldValue {
	if len(f.Values) == 0 {
		return FieldValue{}
	}
	return f.Values[0]
}

// FieldDef is a custom-field definition from the Kommo account.
type FieldDef struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Enums []Enum `json:"enums"`
}

// Enum is one predefined option of a select/multiselect field.
type Enum struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// Contact is a Kommo contact with its typed custom-field values.
type Contact struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	CustomFieldsValues []ContactField `json:"custom_fields_values"`
}

// ContactField is a contact custom field keyed by its well-known field code
// (PHONE, EMAIL, ...).
type ContactField struct {
	FieldCode string         `json:"field_code"`
	Values    []ContactValue `json:"values"`
}

// ContactValue is one value slot of a contact custom field.
type ContactValue struct {
	Value any `json:"value"`
}

// valuesByCode collects every value of the fields carrying the given code.
func (c Contact) valuesByCode(code string) []string {
	var out []string
	for _, f := range c.CustomFieldsValues {
		if f.FieldCode != code {
			continue
		}
		for _, v := range f.Values {
			if s := asString(v.Value); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Phones returns every phone value on the contact.
func (c Contact) Phones() []string { return c.valuesByCode("PHONE") }

// Emails returns every email value on the contact.
func (c Contact) Emails() []string { return c.valuesByCode("EMAIL") }

// LossReason is an account-level loss reason.
type LossReason struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Account is the Kommo account record returned by GET /account.
type Account struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}
