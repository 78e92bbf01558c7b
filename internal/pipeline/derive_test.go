package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kommo-bridge/internal/dict"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

func TestRenderDate(t *testing.T) {
	t.Parallel()

	d := renderDate(time.Date(2025, 3, 5, 15, 4, 0, 0, time.UTC))
	assert.Equal(t, "2025-03-05", d.ISO)
	assert.Equal(t, "03/05/2025", d.US)
	assert.Equal(t, "05.03.25", d.Dotted)
	assert.Equal(t, "05/03/25", d.Slash)
	assert.Equal(t, "05", d.Day)
	assert.Equal(t, "03", d.Month)
	assert.Equal(t, "25", d.Year2)
	assert.Equal(t, "2025", d.Year4)

	mapeo := map[string]any{}
	d.apply(mapeo, "Hoy")
	assert.Equal(t, "2025-03-05", mapeo["Fecha_Hoy"])
	assert.Equal(t, "03/05/2025", mapeo["Fecha_Hoy_US"])
	assert.Equal(t, "05.03.25", mapeo["Fecha_Hoy_Punto"])
	assert.Equal(t, "05/03/25", mapeo["Fecha_Hoy_Slash"])
	assert.Equal(t, "05", mapeo["Dia_Hoy"])
	assert.Equal(t, "03", mapeo["Mes_Hoy"])
	assert.Equal(t, "25", mapeo["Anio_Hoy_Corto"])
	assert.Equal(t, "2025", mapeo["Anio_Hoy"])
}

func TestResolveTipo(t *testing.T) {
	t.Parallel()
	dicts, err := dict.Load()
	require.NoError(t, err)

	tests := []struct {
		name       string
		mapeo      map[string]any
		wantID     any
		wantNombre string
	}{
		{"known id", map[string]any{"Tipo_Id": "1284399"}, "1284399", "Negocio Existente"},
		{"unknown id passes through", map[string]any{"Tipo_Id": "777"}, "777", dict.UnknownName},
		{"known text", map[string]any{"Tipo": "negocio existente"}, "1284399", "Negocio Existente"},
		{"unknown text passes through", map[string]any{"Tipo": "Algo Raro"}, nil, "Algo Raro"},
		{"empty", map[string]any{}, nil, dict.UnknownName},
		{"id key wins over text key", map[string]any{"Tipo_Id": "1287460", "Tipo": "Recuperado"}, "1287460", "Asignado"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			id, nombre := resolveTipo(dicts, tc.mapeo)
			assert.Equal(t, tc.wantID, id)
			assert.Equal(t, tc.wantNombre, nombre)
		})
	}
}

func TestIsOpportunityKey(t *testing.T) {
	t.Parallel()

	assert.True(t, isOpportunityKey("Url_Oportunidad"))
	assert.True(t, isOpportunityKey("Url_Op1"))
	assert.True(t, isOpportunityKey("Url_De_La_Oportunidad_Sf"))
	assert.False(t, isOpportunityKey("Oportunidad_Nombre"))
	assert.False(t, isOpportunityKey("Url_Carpeta_Del_Cliente"))
	assert.False(t, isOpportunityKey("Telefono"))
}

func rawField(key, value string) TranslatedField {
	return TranslatedField{Key: key, Value: TranslatedValue{Kind: KindRaw, Raw: value}}
}

func TestExtractOpportunities(t *testing.T) {
	t.Parallel()

	t.Run("lightning path", func(t *testing.T) {
		t.Parallel()
		urls, ids := ExtractOpportunities([]TranslatedField{
			rawField("Url_Oportunidad", "https://crm.example.com/lightning/r/Opportunity/006AbCdEfGhIjKl/view"),
		})
		assert.Equal(t, []string{"https://crm.example.com/lightning/r/Opportunity/006AbCdEfGhIjKl/view"}, urls)
		assert.Equal(t, []string{"006AbCdEfGhIjKl"}, ids)
	})

	t.Run("query parameter and 18-char id", func(t *testing.T) {
		t.Parallel()
		_, ids := ExtractOpportunities([]TranslatedField{
			rawField("Url_Op1", "https://example.com/view?oppid=006AbCdEfGhIjKlMnO"),
		})
		assert.Equal(t, []string{"006AbCdEfGhIjKlMnO"}, ids)
	})

	t.Run("bare domain gains a scheme", func(t *testing.T) {
		t.Parallel()
		urls, _ := ExtractOpportunities([]TranslatedField{
			rawField("Url_Oportunidad", "example.com/006AbCdEfGhIjKl"),
		})
		assert.Equal(t, []string{"https://example.com/006AbCdEfGhIjKl"}, urls)
	})

	t.Run("dedupe across fields", func(t *testing.T) {
		t.Parallel()
		urls, ids := ExtractOpportunities([]TranslatedField{
			rawField("Url_Oportunidad", "https://a.com/006AbCdEfGhIjKl https://a.com/006AbCdEfGhIjKl"),
			rawField("Url_Op2", "https://a.com/006AbCdEfGhIjKl, https://b.com/006ZzZzZzZzZzZz"),
		})
		assert.Equal(t, []string{"https://a.com/006AbCdEfGhIjKl", "https://b.com/006ZzZzZzZzZzZz"}, urls)
		assert.Equal(t, []string{"006AbCdEfGhIjKl", "006ZzZzZzZzZzZz"}, ids)
	})

	t.Run("invalid tokens are skipped", func(t *testing.T) {
		t.Parallel()
		urls, ids := ExtractOpportunities([]TranslatedField{
			rawField("Url_Oportunidad", "no_es_url pendiente"),
		})
		assert.Equal(t, []string{}, urls)
		assert.Equal(t, []string{}, ids)
	})

	t.Run("non-opportunity keys are ignored", func(t *testing.T) {
		t.Parallel()
		urls, _ := ExtractOpportunities([]TranslatedField{
			rawField("Url_Carpeta_Del_Cliente", "https://drive.example.com/folder/006AbCdEfGhIjKl"),
		})
		assert.Equal(t, []string{}, urls)
	})
}

func TestResolveContacts(t *testing.T) {
	t.Parallel()

	t.Run("main contact wins", func(t *testing.T) {
		t.Parallel()
		client := &stubClient{contacts: []kommo.Contact{
			{ID: 1, CustomFieldsValues: []kommo.ContactField{
				{FieldCode: "PHONE", Values: []kommo.ContactValue{{Value: "0999999999"}}},
			}},
			{ID: 2, CustomFieldsValues: []kommo.ContactField{
				{FieldCode: "PHONE", Values: []kommo.ContactValue{{Value: "+593987654321"}}},
				{FieldCode: "EMAIL", Values: []kommo.ContactValue{{Value: "main@example.com"}}},
			}},
		}}
		p := newTestPipeline(t, client)
		d := p.resolveContacts(context.Background(), "cesch", []kommo.ContactLink{
			{ID: "1"}, {ID: "2", IsMain: true},
		})
		assert.Equal(t, "0987654321", d.Telefono)
		assert.Equal(t, "main@example.com", d.Email)
	})

	t.Run("fetch failure degrades to empty details", func(t *testing.T) {
		t.Parallel()
		client := &stubClient{contactErr: assert.AnError}
		p := newTestPipeline(t, client)
		d := p.resolveContacts(context.Background(), "cesch", []kommo.ContactLink{{ID: "1"}})
		assert.Equal(t, "", d.Telefono)
		assert.Equal(t, []string{}, d.Telefonos)
		assert.Equal(t, []string{}, d.Emails)
	})

	t.Run("no links short-circuits", func(t *testing.T) {
		t.Parallel()
		p := newTestPipeline(t, &stubClient{})
		d := p.resolveContacts(context.Background(), "cesch", nil)
		assert.Equal(t, "", d.Email)
	})
}
