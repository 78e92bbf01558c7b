package kommo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadAccessors(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": 123,
		"status_id": 58964555,
		"pipeline_id": "99",
		"responsible_user_id": 1277529,
		"loss_reason_id": 5,
		"_embedded": {"contacts": [
			{"id": 11, "is_main": false},
			{"id": 12, "is_main": true}
		]}
	}`
	var lead Lead
	require.NoError(t, json.Unmarshal([]byte(raw), &lead))

	assert.Equal(t, "123", lead.ID())
	assert.Equal(t, "58964555", lead.StatusID())
	assert.Equal(t, "99", lead.PipelineID())
	assert.Equal(t, "1277529", lead.ResponsibleUserID())
	assert.Equal(t, "5", lead.LossReasonID())
	assert.False(t, lead.HasCustomFields())

	links := lead.EmbeddedContacts()
	require.Len(t, links, 2)
	assert.Equal(t, ContactLink{ID: "11", IsMain: false}, links[0])
	assert.Equal(t, ContactLink{ID: "12", IsMain: true}, links[1])
}

func TestLeadMissingAttributes(t *testing.T) {
	t.Parallel()
	lead := Lead{}
	assert.Empty(t, lead.ID())
	assert.Empty(t, lead.ResponsibleUserID())
	assert.Empty(t, lead.LossReasonID())
	assert.Nil(t, lead.EmbeddedContacts())
}

func TestLeadHasCustomFields(t *testing.T) {
	t.Parallel()
	assert.True(t, Lead{"custom_fields": []any{}}.HasCustomFields())
	assert.True(t, Lead{"custom_fields_values": []any{}}.HasCustomFields())
	assert.False(t, Lead{"id": 1}.HasCustomFields())
}

func TestLeadClone(t *testing.T) {
	t.Parallel()
	orig := Lead{"id": 1, "status_id": 2}
	clone := orig.Clone()
	clone["status_id"] = 3
	assert.Equal(t, 2, orig["status_id"])
	assert.Equal(t, 3, clone["status_id"])
}

func TestCustomFieldFirst(t *testing.T) {
	t.Parallel()
	cf := CustomField{ID: "7", Values: []FieldValue{{Value: "x", EnumID: 10}, {Value: "y"}}}
	assert.Equal(t, "x", cf.First().Value)
	assert.Equal(t, 10, cf.First().EnumID)
	assert.Equal(t, FieldValue{}, CustomField{}.First())
}
