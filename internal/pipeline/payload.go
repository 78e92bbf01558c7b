package pipeline

import (
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// Webhook deliveries have arrived in at least five shapes over the life of
// the integration: {leads:[...]}, {leads:{status:[...]}}, {status:[...]},
// {status:{...}} and any of those nested under {payload:...}. The resolver
// walks an ordered matcher list and the first hit wins; an unrecognized body
// yields an empty list, never an error.
type shapeMatcher struct {
	name  string
	match func(body map[string]any) ([]kommo.Lead, bool)
}

var leadMatchers = []shapeMatcher{
	{"leads-array", func(b map[string]any) ([]kommo.Lead, bool) {
		if v, ok := b["leads"].([]any); ok {
			return asLeads(v), true
		}
		return nil, false
	}},
	{"leads-status", func(b map[string]any) ([]kommo.Lead, bool) {
		if m, ok := b["leads"].(map[string]any); ok {
			if v, ok := m["status"]; ok {
				return asLeadList(v), true
			}
		}
		return nil, false
	}},
	{"status", func(b map[string]any) ([]kommo.Lead, bool) {
		if v, ok := b["status"]; ok {
			return asLeadList(v), true
		}
		return nil, false
	}},
	{"payload-leads-array", func(b map[string]any) ([]kommo.Lead, bool) {
		if p, ok := b["payload"].(map[string]any); ok {
			if v, ok := p["leads"].([]any); ok {
				return asLeads(v), true
			}
		}
		return nil, false
	}},
	{"payload-leads-status", func(b map[string]any) ([]kommo.Lead, bool) {
		if p, ok := b["payload"].(map[string]any); ok {
			if m, ok := p["leads"].(map[string]any); ok {
				if v, ok := m["status"]; ok {
					return asLeadList(v), true
				}
			}
		}
		return nil, false
	}},
}

// asLeadList accepts either an array of lead objects or a single lead object.
func asLeadList(v any) []kommo.Lead {
	switch x := v.(type) {
	case []any:
		return asLeads(x)
	case map[string]any:
		return []kommo.Lead{kommo.Lead(x)}
	default:
		return nil
	}
}

func asLeads(items []any) []kommo.Lead {
	leads := make([]kommo.Lead, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			leads = append(leads, kommo.Lead(m))
		}
	}
	return leads
}

// ResolveLeads extracts the lead list from an arbitrary inbound body.
func ResolveLeads(body map[string]any) []kommo.Lead {
	if body == nil {
		return nil
	}
	for _, m := range leadMatchers {
		if leads, ok := m.match(body); ok {
			return leads
		}
	}
	return nil
}

// ResolveAccount extracts the account object, checking the sibling key first
// and then the payload nesting.
func ResolveAccount(body map[string]any) map[string]any {
	if body == nil {
		return nil
	}
	if acc, ok := body["account"].(map[string]any); ok {
		return acc
	}
	if p, ok := body["payload"].(map[string]any); ok {
		if acc, ok := p["account"].(map[string]any); ok {
			return acc
		}
	}
	return nil
}
