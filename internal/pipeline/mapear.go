package pipeline

import (
	"strings"

	"github.com/sells-group/kommo-bridge/internal/dict"
	"github.com/sells-group/kommo-bridge/internal/normalize"
)

// MapManual is the synchronous, non-enriching translation over explicit
// scalar/CSV input fields: comma-lists are split and the first id present in
// the respective dictionary wins; the advisor and lead-type inputs also
// accept free text scanned for embedded ids or normalized name matches.
// No network calls.
func MapManual(dicts *dict.Registry, input map[string]any) map[string]any {
	campaniaIDs := normalize.SplitIDs(normalize.ToString(input["campania_enum_ids"]))
	campaniaID, campaniaNombre := dicts.FirstIn("campanas", campaniaIDs)
	if campaniaNombre == "" {
		campaniaNombre = dict.UnknownName
	}

	cotRaw := normalize.ToString(input["cot_china_enum"])
	cotID, cotNombre := dicts.FirstIn("cot_china", normalize.SplitIDs(cotRaw))
	if cotID == "" {
		cotID, cotNombre = dicts.FirstIDInText("cot_china", cotRaw)
	}

	etapaID := normalize.ToString(input["etapa_id"])
	etapaLegible := dicts.StageLabel(etapaID)

	tipoValores := normalize.SplitIDs(normalize.ToString(input["tipo_enum_ids"]))
	var tipoID any
	tipoNombre := dict.UnknownName
	for _, v := range tipoValores {
		if t, ok := dicts.TipoByID(v); ok {
			tipoID, tipoNombre = t.ID, t.Nombre
			break
		}
		if t, ok := dicts.TipoByText(v); ok {
			tipoID, tipoNombre = t.ID, t.Nombre
			break
		}
	}

	asesorIDIn := normalize.ToString(input["asesor_id"])
	var asesorID any
	asesorNombre := dict.AdvisorNotFound
	if name, ok := dicts.AdvisorName(asesorIDIn); ok {
		asesorID, asesorNombre = asesorIDIn, name
	} else if id, name := dicts.FirstIDInText("asesores", normalize.ToString(input["asesor_texto"])); id != "" {
		asesorID, asesorNombre = id, name
	}

	out := map[string]any{
		"Campania_Ids":     strings.Join(campaniaIDs, ","),
		"Campania_Nombre":  campaniaNombre,
		"Etapa_Id":         etapaID,
		"Etapa_Legible":    etapaLegible,
		"Tipo_Id":          tipoID,
		"Tipo_Nombre":      tipoNombre,
		"Tipos_Detectados": strings.Join(tipoValores, "|"),
		"Asesor_Id":        asesorID,
		"Asesor_Nombre":    asesorNombre,
		"CotChina_Nombre":  cotNombre,
	}
	if campaniaID != "" {
		out["Campania_Id"] = campaniaID
	} else {
		out["Campania_Id"] = nil
	}
	if cotID != "" {
		out["CotChina_Id"] = cotID
	} else {
		out["CotChina_Id"] = nil
	}
	return out
}
