package pipeline

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/kommo-bridge/internal/dict"
	"github.com/sells-group/kommo-bridge/internal/normalize"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// DateParts is one calendar date rendered in every format the downstream
// tool consumes.
type DateParts struct {
	ISO    string // 2006-01-02
	US     string // 01/02/2006
	Dotted string // 02.01.06
	Slash  string // 02/01/06
	Day    string
	Month  string
	Year2  string
	Year4  string
}

func renderDate(t time.Time) DateParts {
	return DateParts{
		ISO:    t.Format("2006-01-02"),
		US:     t.Format("01/02/2006"),
		Dotted: t.Format("02.01.06"),
		Slash:  t.Format("02/01/06"),
		Day:    t.Format("02"),
		Month:  t.Format("01"),
		Year2:  t.Format("06"),
		Year4:  t.Format("2006"),
	}
}

// apply writes the date under Fecha_<suffix> keys plus the individual parts.
func (d DateParts) apply(mapeo map[string]any, suffix string) {
	mapeo["Fecha_"+suffix] = d.ISO
	mapeo["Fecha_"+suffix+"_US"] = d.US
	mapeo["Fecha_"+suffix+"_Punto"] = d.Dotted
	mapeo["Fecha_"+suffix+"_Slash"] = d.Slash
	mapeo["Dia_"+suffix] = d.Day
	mapeo["Mes_"+suffix] = d.Month
	mapeo["Anio_"+suffix+"_Corto"] = d.Year2
	mapeo["Anio_"+suffix] = d.Year4
}

// resolveTipo resolves the lead type from the translated field values:
// numeric input looks up by id, text looks up by normalized name, and
// unresolved text passes through verbatim with a nil id.
func resolveTipo(dicts *dict.Registry, mapeo map[string]any) (id any, nombre string) {
	raw := mapeo["Tipo_Id"]
	if raw == nil {
		raw = mapeo["Tipo"]
	}
	text := normalize.ToString(raw)
	if text == "" {
		return nil, dict.UnknownName
	}
	if normalize.IsNumeric(text) {
		if t, ok := dicts.TipoByID(text); ok {
			return t.ID, t.Nombre
		}
		return text, dict.UnknownName
	}
	if t, ok := dicts.TipoByText(text); ok {
		return t.ID, t.Nombre
	}
	return nil, text
}

// Salesforce Opportunity ids: "006" key prefix, 15 or 18 characters total.
var (
	oppPathRe  = regexp.MustCompile(`/(006[A-Za-z0-9]{12}(?:[A-Za-z0-9]{3})?)(?:[/?#]|$)`)
	oppQueryRe = regexp.MustCompile(`[?&][A-Za-z_]+=(006[A-Za-z0-9]{12}(?:[A-Za-z0-9]{3})?)(?:[&#]|$)`)
	oppTailRe  = regexp.MustCompile(`(006[A-Za-z0-9]{12}(?:[A-Za-z0-9]{3})?)$`)

	opTokenRe  = regexp.MustCompile(`(?:\b|_)op\d+`)
	tokenSplit = regexp.MustCompile(`[\s,;]+`)
	bareDomain = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.-]*\.[A-Za-z]{2,}(/\S*)?$`)
)

// isOpportunityKey reports whether a translated field key points at an
// opportunity URL: it must mention "url" plus either "oportunidad" or an
// opN token.
func isOpportunityKey(key string) bool {
	folded := normalize.Fold(key)
	if !strings.Contains(folded, "url") {
		return false
	}
	return strings.Contains(folded, "oportunidad") || opTokenRe.MatchString(folded)
}

// ExtractOpportunities scans the translated fields for opportunity URLs and
// ids. Bare domain tokens gain an https:// scheme; both result lists are
// deduplicated preserving first-seen order.
func ExtractOpportunities(fields []TranslatedField) (urls, ids []string) {
	urls = []string{}
	ids = []string{}
	seenURL := map[string]bool{}
	seenID := map[string]bool{}

	for _, tf := range fields {
		if !isOpportunityKey(tf.Key) {
			continue
		}
		for _, raw := range fieldStrings(tf) {
			for _, token := range tokenSplit.Split(raw, -1) {
				token = strings.TrimSpace(token)
				if token == "" {
					continue
				}
				if !strings.Contains(token, "://") && bareDomain.MatchString(token) {
					token = "https://" + token
				}
				u, err := url.Parse(token)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					continue
				}
				if !seenURL[token] {
					seenURL[token] = true
					urls = append(urls, token)
				}
				if id := extractOpportunityID(token); id != "" && !seenID[id] {
					seenID[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return urls, ids
}

// fieldStrings collects every string value carried by a translated field.
func fieldStrings(tf TranslatedField) []string {
	switch tf.Value.Kind {
	case KindEnumRef:
		if s := normalize.ToString(tf.Value.Scalar); s != "" {
			return []string{s}
		}
		return nil
	case KindMultiEnumRef:
		return nil
	default:
		if list, ok := tf.Value.Raw.([]any); ok {
			out := make([]string, 0, len(list))
			for _, v := range list {
				if s := normalize.ToString(v); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
		if s := normalize.ToString(tf.Value.Raw); s != "" {
			return []string{s}
		}
		return nil
	}
}

func extractOpportunityID(u string) string {
	for _, re := range []*regexp.Regexp{oppPathRe, oppQueryRe, oppTailRe} {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1]
		}
	}
	return ""
}

// contactDetails holds the extracted reachability data of the lead's main
// contact.
type contactDetails struct {
	Telefono  string
	Telefonos []string
	Email     string
	Emails    []string
}

// resolveContacts fetches the linked contacts and extracts phones and emails
// from the one flagged main (else the first). Failures degrade to empty
// details; they never fail the lead.
func (p *Pipeline) resolveContacts(ctx context.Context, subdomain string, links []kommo.ContactLink) contactDetails {
	details := contactDetails{Telefonos: []string{}, Emails: []string{}}
	if len(links) == 0 || subdomain == "" {
		return details
	}

	ids := make([]string, 0, len(links))
	mainID := links[0].ID
	for _, l := range links {
		ids = append(ids, l.ID)
		if l.IsMain {
			mainID = l.ID
		}
	}

	contacts, err := p.client.GetContacts(ctx, subdomain, ids)
	if err != nil {
		zap.L().Warn("pipeline: contact fetch failed",
			zap.Strings("contact_ids", ids),
			zap.Error(err),
		)
		return details
	}
	if len(contacts) == 0 {
		return details
	}

	chosen := contacts[0]
	for _, c := range contacts {
		if normalize.ToString(c.ID) == mainID {
			chosen = c
			break
		}
	}

	if phones := chosen.Phones(); phones != nil {
		details.Telefonos = phones
	}
	if emails := chosen.Emails(); emails != nil {
		details.Emails = emails
	}
	if len(details.Telefonos) > 0 {
		details.Telefono = normalize.CleanPhone(strings.Join(details.Telefonos, ","))
	}
	if len(details.Emails) > 0 {
		details.Email = details.Emails[0]
	}
	return details
}

// resolveLossReason translates the lead's loss-reason id through the cached
// listing; unresolved ids yield "".
func (p *Pipeline) resolveLossReason(ctx context.Context, subdomain, lossID string) string {
	if lossID == "" || subdomain == "" || p.loss == nil {
		return ""
	}
	reasons, err := p.loss.Ensure(ctx, subdomain)
	if err != nil {
		zap.L().Warn("pipeline: loss reasons unavailable", zap.Error(err))
		return ""
	}
	return reasons[lossID]
}
