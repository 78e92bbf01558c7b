package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// NeedsEnrichment reports whether the inbound record is missing data the
// translation needs: the responsible user, both custom-field shapes, or the
// embedded contact links.
func NeedsEnrichment(lead kommo.Lead) bool {
	return lead.ResponsibleUserID() == "" ||
		!lead.HasCustomFields() ||
		len(lead.EmbeddedContacts()) == 0
}

// Merge layers the inbound webhook record over the freshly fetched one.
// Fetched attributes are defaults and inbound values win, with one inversion:
// the id is trusted from the authoritative fetch, while status_id and
// pipeline_id stay with the webhook (the fetch may be staler than the event
// that triggered it).
func Merge(full, inbound kommo.Lead) kommo.Lead {
	out := full.Clone()
	for k, v := range inbound {
		out[k] = v
	}
	if full.ID() != "" {
		out["id"] = full["id"]
	}
	if inbound.StatusID() == "" && full.StatusID() != "" {
		out["status_id"] = full["status_id"]
	}
	if inbound.PipelineID() == "" && full.PipelineID() != "" {
		out["pipeline_id"] = full["pipeline_id"]
	}
	return out
}

// enrich fetches the full lead and merges it under the inbound record.
// Any failure is logged and the inbound record is returned unchanged:
// enrichment is best-effort per lead and never aborts the batch.
func (p *Pipeline) enrich(ctx context.Context, subdomain string, inbound kommo.Lead) kommo.Lead {
	if !NeedsEnrichment(inbound) || inbound.ID() == "" || subdomain == "" {
		return inbound
	}
	full, err := p.client.GetLead(ctx, subdomain, inbound.ID())
	if err != nil {
		zap.L().Warn("pipeline: enrichment failed, continuing un-enriched",
			zap.String("lead_id", inbound.ID()),
			zap.String("subdomain", subdomain),
			zap.Error(err),
		)
		return inbound
	}
	return Merge(full, inbound)
}
