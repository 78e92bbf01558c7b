package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/kommo-bridge/internal/dict"
	"github.com/sells-group/kommo-bridge/internal/normalize"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// Advisor is the resolved sales representative for a lead: display name,
// short first-name form, and the two-digit official code.
type Advisor struct {
	Nombre string
	Corto  string
	Codigo string
}

// The "marketing" placeholder shows up as the responsible user on leads that
// are routed by automations rather than a person; a real advisor name coming
// from the lead's own fields should win over it.
const marketingSentinel = "marketing"

// resolveAdvisor applies the three-tier precedence: static dictionary by
// user id, then a live user fetch, then the custom-field-derived name when
// the resolved one is a placeholder (unknown code, the marketing user, or
// the not-found sentinel).
func (p *Pipeline) resolveAdvisor(ctx context.Context, subdomain, userID, fieldName string) Advisor {
	name, ok := p.dicts.AdvisorName(userID)
	if !ok {
		name = dict.AdvisorNotFound
	}

	if name == dict.AdvisorNotFound && subdomain != "" && userID != "" {
		fetched, err := p.client.GetUserName(ctx, subdomain, userID)
		switch {
		case err == nil && fetched != "":
			name = fetched
		case err != nil && !errors.Is(err, kommo.ErrNotFound):
			zap.L().Warn("pipeline: user lookup failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	if fieldName != "" {
		placeholder := !p.dicts.HasAdvisorCode(name) ||
			normalize.Fold(name) == marketingSentinel ||
			name == dict.AdvisorNotFound
		if placeholder {
			name = fieldName
		}
	}

	return Advisor{
		Nombre: name,
		Corto:  p.dicts.AdvisorShort(name),
		Codigo: p.dicts.AdvisorCode(name),
	}
}
