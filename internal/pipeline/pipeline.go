// Package pipeline implements the lead enrichment and field-translation
// pipeline: payload-shape resolution, conditional CRM enrichment,
// custom-field normalization, dictionary translation and derived-attribute
// assembly. Each lead in a batch is processed independently; a failure on
// one lead degrades that lead's output and never aborts the batch.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/kommo-bridge/internal/defs"
	"github.com/sells-group/kommo-bridge/internal/dict"
	"github.com/sells-group/kommo-bridge/internal/normalize"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// DefaultTimeZone is the business time zone used for date rendering when no
// override is configured.
const DefaultTimeZone = "America/Guayaquil"

// Pipeline wires the dictionaries, the Kommo client and the definition
// caches into the translation flow.
type Pipeline struct {
	dicts  *dict.Registry
	client kommo.Client
	defs   *defs.Cache
	loss   *defs.LossReasonCache

	defaultSubdomain string
	closeDays        int
	timeZone         string
	now              func() time.Time
}

// New creates a Pipeline. closeDays and timeZone set the closing-date
// defaults; per-request overrides come through Options.
func New(dicts *dict.Registry, client kommo.Client, defCache *defs.Cache, lossCache *defs.LossReasonCache, defaultSubdomain string, closeDays int, timeZone string) *Pipeline {
	if closeDays <= 0 {
		closeDays = 30
	}
	if timeZone == "" {
		timeZone = DefaultTimeZone
	}
	return &Pipeline{
		dicts:            dicts,
		client:           client,
		defs:             defCache,
		loss:             lossCache,
		defaultSubdomain: defaultSubdomain,
		closeDays:        closeDays,
		timeZone:         timeZone,
		now:              time.Now,
	}
}

// Options are per-request overrides for the closing-date computation.
type Options struct {
	CloseDays int
	TimeZone  string
}

// Result is the translate-batch response body.
type Result struct {
	OK      bool             `json:"ok"`
	Leads   []map[string]any `json:"leads"`
	Account map[string]any   `json:"account"`
}

// TranslateBatch runs the pipeline over an arbitrary inbound webhook body.
// Leads are processed sequentially; the result always covers every resolved
// lead even when enrichment or definitions are unavailable.
func (p *Pipeline) TranslateBatch(ctx context.Context, body map[string]any, opts Options) *Result {
	leads := ResolveLeads(body)
	account := ResolveAccount(body)
	if account == nil {
		account = map[string]any{}
	}

	subdomain := strings.TrimSpace(normalize.ToString(account["subdomain"]))
	if subdomain == "" {
		subdomain = p.defaultSubdomain
	}

	var definitions *defs.Definitions
	if subdomain != "" && p.defs != nil {
		d, err := p.defs.Ensure(ctx, subdomain)
		if err != nil {
			zap.L().Warn("pipeline: field definitions unavailable",
				zap.String("subdomain", subdomain),
				zap.Error(err),
			)
		} else {
			definitions = d
		}
	}

	closeDays := p.closeDays
	if opts.CloseDays > 0 {
		closeDays = opts.CloseDays
	}
	loc := p.location(opts.TimeZone)

	out := make([]map[string]any, 0, len(leads))
	for _, inbound := range leads {
		out = append(out, p.processLead(ctx, subdomain, inbound, definitions, loc, closeDays))
	}
	return &Result{OK: true, Leads: out, Account: account}
}

func (p *Pipeline) location(override string) *time.Location {
	tz := p.timeZone
	if override != "" {
		tz = override
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		zap.L().Warn("pipeline: unknown time zone, using default",
			zap.String("tz", tz),
		)
		loc, err = time.LoadLocation(DefaultTimeZone)
		if err != nil {
			loc = time.UTC
		}
	}
	return loc
}

// processLead runs enrichment, translation and derivation for one lead and
// assembles the output record: the inbound attributes plus normalized
// custom_fields, the fields_pretty descriptors and the mapeo object.
func (p *Pipeline) processLead(ctx context.Context, subdomain string, inbound kommo.Lead, definitions *defs.Definitions, loc *time.Location, closeDays int) map[string]any {
	lead := p.enrich(ctx, subdomain, inbound)

	statusID := lead.StatusID()
	userID := lead.ResponsibleUserID()
	cfs := NormalizeFields(lead)
	translated := TranslateFields(cfs, definitions)

	prettys := make([]map[string]any, 0, len(translated))
	mapeo := make(map[string]any)
	var advisorField string
	for _, tf := range translated {
		prettys = append(prettys, tf.Pretty())
		tf.Apply(mapeo)
		if tf.Key == "Asesor" {
			advisorField = tf.StringValue()
		}
	}

	stage := p.dicts.StageLabel(statusID)
	mapeo["Etapa_Legible"] = stage
	mapeo["StageName_SF"] = p.dicts.StageDestination(stage)

	tipoID, tipoNombre := resolveTipo(p.dicts, mapeo)
	mapeo["Tipo_Id"] = tipoID
	mapeo["Tipo_Nombre"] = tipoNombre

	advisor := p.resolveAdvisor(ctx, subdomain, userID, advisorField)
	mapeo["Asesor_Nombre"] = advisor.Nombre
	mapeo["Asesor_Corto"] = advisor.Corto
	mapeo["Asesor_Codigo"] = advisor.Codigo

	today := p.now().In(loc)
	renderDate(today).apply(mapeo, "Hoy")
	renderDate(today.AddDate(0, 0, closeDays)).apply(mapeo, "Cierre")

	contacts := p.resolveContacts(ctx, subdomain, lead.EmbeddedContacts())
	mapeo["Telefono"] = contacts.Telefono
	mapeo["Telefonos"] = contacts.Telefonos
	mapeo["Email"] = contacts.Email

	urls, oppIDs := ExtractOpportunities(translated)
	mapeo["Oportunidad_URLs"] = urls
	mapeo["Oportunidad_Ids"] = oppIDs

	mapeo["Motivo_Perdida"] = p.resolveLossReason(ctx, subdomain, lead.LossReasonID())

	out := inbound.Clone()
	out["responsible_user_id"] = userID
	out["custom_fields"] = cfs
	out["fields_pretty"] = prettys
	out["mapeo"] = mapeo
	return map[string]any(out)
}
