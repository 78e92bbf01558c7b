// Package dict holds the static business dictionaries: campaign, quote-type,
// stage, lead-type and advisor mappings for the Kommo account. The data lives
// in an embedded YAML file loaded once at startup; a Registry is immutable
// after Load.
package dict

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/kommo-bridge/internal/normalize"
)

//go:embed dictionaries.yaml
var dictionariesYAML []byte

// Sentinels used by the translation pipeline.
const (
	UnknownStage     = "Etapa desconocida"
	UnknownName      = "Desconocido"
	AdvisorNotFound  = "No encontrado"
	AdvisorUnknown   = "00"
	AdvisorNoneCode  = "99"
	NotAssignedName  = "No asignado"
	DefaultStageName = "Qualification"
)

// Advisor is one sales representative: Kommo user id, display name, the short
// first-name form and the two-digit official code.
type Advisor struct {
	ID     string `yaml:"id"`
	Nombre string `yaml:"nombre"`
	Corto  string `yaml:"corto"`
	Codigo string `yaml:"codigo"`
}

// Tipo is a lead-type entry resolved by id or by normalized name.
type Tipo struct {
	ID     string
	Nombre string
}

type rawData struct {
	Campanas     map[string]string `yaml:"campanas"`
	CotChina     map[string]string `yaml:"cot_china"`
	Etapas       map[string]string `yaml:"etapas"`
	EtapaDestino map[string]string `yaml:"etapa_destino"`
	Tipos        map[string]string `yaml:"tipos"`
	Asesores     []Advisor         `yaml:"asesores"`
}

// Registry is the indexed, immutable view over the business dictionaries.
type Registry struct {
	campanas     map[string]string
	cotChina     map[string]string
	etapas       map[string]string
	etapaDestino map[string]string
	tiposByID    map[string]string
	tiposByName  map[string]Tipo
	asesores     map[string]string // id → display name
	shortByName  map[string]string // folded full name → short form
	codeByShort  map[string]string
	codeByName   map[string]string // folded full name → code
	byName       map[string]map[string]string
}

// Load parses the embedded dictionary data and builds the indexed registry.
func Load() (*Registry, error) {
	var raw rawData
	if err := yaml.Unmarshal(dictionariesYAML, &raw); err != nil {
		return nil, eris.Wrap(err, "dict: parse dictionaries")
	}

	r := &Registry{
		campanas:     raw.Campanas,
		cotChina:     raw.CotChina,
		etapas:       raw.Etapas,
		etapaDestino: raw.EtapaDestino,
		tiposByID:    raw.Tipos,
		tiposByName:  make(map[string]Tipo, len(raw.Tipos)),
		asesores:     make(map[string]string, len(raw.Asesores)),
		shortByName:  make(map[string]string, len(raw.Asesores)),
		codeByShort:  make(map[string]string, len(raw.Asesores)),
		codeByName:   make(map[string]string, len(raw.Asesores)),
	}
	for id, nombre := range raw.Tipos {
		r.tiposByName[normalize.Fold(nombre)] = Tipo{ID: id, Nombre: nombre}
	}
	for _, a := range raw.Asesores {
		r.asesores[a.ID] = a.Nombre
		folded := normalize.Fold(a.Nombre)
		r.shortByName[folded] = a.Corto
		r.codeByName[folded] = a.Codigo
		r.codeByShort[normalize.Fold(a.Corto)] = a.Codigo
	}
	r.byName = map[string]map[string]string{
		"campanas":  r.campanas,
		"cot_china": r.cotChina,
		"etapas":    r.etapas,
		"tipos":     r.tiposByID,
		"asesores":  r.asesores,
	}
	return r, nil
}

// Lookup resolves an id in the named dictionary. ok is false when the
// dictionary name itself is unknown; a known dictionary with a missing id
// returns ("", true).
func (r *Registry) Lookup(dictionary, id string) (name string, ok bool) {
	m, ok := r.byName[strings.ToLower(dictionary)]
	if !ok {
		return "", false
	}
	return m[id], true
}

// StageLabel translates a status id to its human stage label, defaulting to
// the unknown-stage sentinel.
func (r *Registry) StageLabel(statusID string) string {
	if s, ok := r.etapas[statusID]; ok {
		return s
	}
	return UnknownStage
}

// StageDestination maps a human stage label to the downstream CRM stage name,
// defaulting to Qualification.
func (r *Registry) StageDestination(stageLabel string) string {
	if s, ok := r.etapaDestino[stageLabel]; ok {
		return s
	}
	return DefaultStageName
}

// TipoByID resolves a lead type by numeric id.
func (r *Registry) TipoByID(id string) (Tipo, bool) {
	nombre, ok := r.tiposByID[id]
	return Tipo{ID: id, Nombre: nombre}, ok
}

// TipoByText resolves a lead type by accent- and case-insensitive name.
func (r *Registry) TipoByText(text string) (Tipo, bool) {
	t, ok := r.tiposByName[normalize.Fold(text)]
	return t, ok
}

// AdvisorName returns an advisor's display name by Kommo user id.
func (r *Registry) AdvisorName(userID string) (string, bool) {
	n, ok := r.asesores[userID]
	return n, ok
}

// AdvisorShort derives the short first-name form for a display name via the
// normalized-key dictionary; unknown names fall back to their first token.
func (r *Registry) AdvisorShort(name string) string {
	if s, ok := r.shortByName[normalize.Fold(name)]; ok {
		return s
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// AdvisorCode resolves the two-digit official code for a display name:
// short-name table, then normalized-full-name table, then the not-assigned
// sentinel code, then the numeric fallback.
func (r *Registry) AdvisorCode(name string) string {
	if c, ok := r.codeByShort[normalize.Fold(r.AdvisorShort(name))]; ok {
		return c
	}
	if c, ok := r.codeByName[normalize.Fold(name)]; ok {
		return c
	}
	if normalize.Fold(name) == normalize.Fold(NotAssignedName) {
		return AdvisorNoneCode
	}
	return AdvisorUnknown
}

// HasAdvisorCode reports whether name resolves to a known advisor code.
func (r *Registry) HasAdvisorCode(name string) bool {
	if _, ok := r.codeByShort[normalize.Fold(r.AdvisorShort(name))]; ok {
		return true
	}
	_, ok := r.codeByName[normalize.Fold(name)]
	return ok
}

// FirstIn returns the first id from ids present in the named dictionary.
func (r *Registry) FirstIn(dictionary string, ids []string) (id, name string) {
	m, ok := r.byName[strings.ToLower(dictionary)]
	if !ok {
		return "", ""
	}
	for _, candidate := range ids {
		if n, hit := m[candidate]; hit {
			return candidate, n
		}
	}
	return "", ""
}

// FirstIDInText scans free text for embedded numeric ids and returns the
// first one present in the named dictionary.
func (r *Registry) FirstIDInText(dictionary, text string) (id, name string) {
	return r.FirstIn(dictionary, normalize.IDsInText(text))
}
