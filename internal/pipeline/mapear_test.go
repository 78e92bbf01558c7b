package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kommo-bridge/internal/dict"
)

func TestMapManual(t *testing.T) {
	t.Parallel()
	dicts, err := dict.Load()
	require.NoError(t, err)

	t.Run("stage and advisor from free text", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{
			"etapa_id":     "58964555",
			"asesor_texto": "asesor 1277529 atendió",
		})
		assert.Equal(t, "LIQUIDADO", out["Etapa_Legible"])
		assert.Equal(t, "58964555", out["Etapa_Id"])
		assert.Equal(t, "1277529", out["Asesor_Id"])
		assert.Equal(t, "Denisse de la Cruz", out["Asesor_Nombre"])
	})

	t.Run("first known campaign id wins", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{
			"campania_enum_ids": "999, 1288371,1287157",
		})
		assert.Equal(t, "999,1288371,1287157", out["Campania_Ids"])
		assert.Equal(t, "1288371", out["Campania_Id"])
		assert.Equal(t, "Referidos", out["Campania_Nombre"])
	})

	t.Run("quote type from embedded id", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{
			"cot_china_enum": "valor 1289525 detectado",
		})
		assert.Equal(t, "1289525", out["CotChina_Id"])
		assert.Equal(t, "Cotizador", out["CotChina_Nombre"])
	})

	t.Run("lead type by id with detection trace", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{
			"tipo_enum_ids": "777,1284399,1276028",
		})
		assert.Equal(t, "1284399", out["Tipo_Id"])
		assert.Equal(t, "Negocio Existente", out["Tipo_Nombre"])
		assert.Equal(t, "777|1284399|1276028", out["Tipos_Detectados"])
	})

	t.Run("lead type by text", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{
			"tipo_enum_ids": "negocio existente",
		})
		assert.Equal(t, "1284399", out["Tipo_Id"])
		assert.Equal(t, "Negocio Existente", out["Tipo_Nombre"])
	})

	t.Run("explicit advisor id beats free text", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{
			"asesor_id":    "1277511",
			"asesor_texto": "asesor 1277529 atendió",
		})
		assert.Equal(t, "1277511", out["Asesor_Id"])
		assert.Equal(t, "Sami Cachiguango", out["Asesor_Nombre"])
	})

	t.Run("empty input yields sentinels", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{})
		assert.Nil(t, out["Campania_Id"])
		assert.Equal(t, dict.UnknownName, out["Campania_Nombre"])
		assert.Nil(t, out["CotChina_Id"])
		assert.Equal(t, dict.UnknownStage, out["Etapa_Legible"])
		assert.Nil(t, out["Tipo_Id"])
		assert.Equal(t, dict.UnknownName, out["Tipo_Nombre"])
		assert.Nil(t, out["Asesor_Id"])
		assert.Equal(t, dict.AdvisorNotFound, out["Asesor_Nombre"])
		assert.Equal(t, "", out["Tipos_Detectados"])
	})

	t.Run("numeric inputs coerce to strings", func(t *testing.T) {
		t.Parallel()
		out := MapManual(dicts, map[string]any{
			"etapa_id":  float64(58964555),
			"asesor_id": float64(1277529),
		})
		assert.Equal(t, "LIQUIDADO", out["Etapa_Legible"])
		assert.Equal(t, "Denisse de la Cruz", out["Asesor_Nombre"])
	})
}
