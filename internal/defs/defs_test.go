package defs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// fakeClient counts ListCustomFields / ListLossReasons calls and serves
// canned data.
type fakeClient struct {
	kommo.Client
	fieldCalls atomic.Int32
	lossCalls  atomic.Int32
	fields     []kommo.FieldDef
	fieldErr   error
}

func (f *fakeClient) ListCustomFields(ctx context.Context, subdomain string) ([]kommo.FieldDef, error) {
	f.fieldCalls.Add(1)
	return f.fields, f.fieldErr
}

func (f *fakeClient) ListLossReasons(ctx context.Context, subdomain string) ([]kommo.LossReason, error) {
	f.lossCalls.Add(1)
	return []kommo.LossReason{{ID: 5, Name: "Precio alto"}}, nil
}

func someFields() []kommo.FieldDef {
	return []kommo.FieldDef{
		{ID: 100, Type: "select", Name: "Campaña", Enums: []kommo.Enum{{ID: 10, Value: "Eventos"}}},
		{ID: 200, Type: "text", Name: "Observaciones"},
	}
}

func TestDefinitions(t *testing.T) {
	t.Parallel()
	d := NewDefinitions(someFields())

	assert.Equal(t, "select", d.TypeOf("100"))
	assert.Equal(t, "", d.TypeOf("999"))

	label, ok := d.LabelOf("100")
	assert.True(t, ok)
	assert.Equal(t, "Campaña", label)
	_, ok = d.LabelOf("999")
	assert.False(t, ok)

	enum, ok := d.EnumLabel("100", "10")
	assert.True(t, ok)
	assert.Equal(t, "Eventos", enum)
	_, ok = d.EnumLabel("100", "11")
	assert.False(t, ok)
	_, ok = d.EnumLabel("200", "10")
	assert.False(t, ok)

	assert.Equal(t, 2, d.Len())
}

func TestDefinitionsNilReceiver(t *testing.T) {
	t.Parallel()
	var d *Definitions
	assert.Equal(t, "", d.TypeOf("1"))
	_, ok := d.LabelOf("1")
	assert.False(t, ok)
	_, ok = d.EnumLabel("1", "2")
	assert.False(t, ok)
	assert.Zero(t, d.Len())
}

func TestCacheEnsure(t *testing.T) {
	t.Parallel()

	t.Run("fresh entry skips the network", func(t *testing.T) {
		t.Parallel()
		fc := &fakeClient{fields: someFields()}
		c := NewCache(fc, DefaultTTL)

		d1, err := c.Ensure(context.Background(), "acme")
		require.NoError(t, err)
		d2, err := c.Ensure(context.Background(), "acme")
		require.NoError(t, err)

		assert.Same(t, d1, d2)
		assert.Equal(t, int32(1), fc.fieldCalls.Load())
	})

	t.Run("stale entry refetches", func(t *testing.T) {
		t.Parallel()
		fc := &fakeClient{fields: someFields()}
		c := NewCache(fc, DefaultTTL)

		now := time.Now()
		c.now = func() time.Time { return now }

		_, err := c.Ensure(context.Background(), "acme")
		require.NoError(t, err)

		now = now.Add(DefaultTTL + time.Second)
		_, err = c.Ensure(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, int32(2), fc.fieldCalls.Load())
	})

	t.Run("empty listing is not cached as fresh", func(t *testing.T) {
		t.Parallel()
		fc := &fakeClient{}
		c := NewCache(fc, DefaultTTL)

		_, err := c.Ensure(context.Background(), "acme")
		require.NoError(t, err)
		_, err = c.Ensure(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, int32(2), fc.fieldCalls.Load())
	})

	t.Run("subdomains are cached independently", func(t *testing.T) {
		t.Parallel()
		fc := &fakeClient{fields: someFields()}
		c := NewCache(fc, DefaultTTL)

		_, err := c.Ensure(context.Background(), "a")
		require.NoError(t, err)
		_, err = c.Ensure(context.Background(), "b")
		require.NoError(t, err)
		assert.Equal(t, int32(2), fc.fieldCalls.Load())
	})

	t.Run("fetch failure propagates", func(t *testing.T) {
		t.Parallel()
		fc := &fakeClient{fieldErr: assert.AnError}
		c := NewCache(fc, DefaultTTL)
		_, err := c.Ensure(context.Background(), "acme")
		assert.Error(t, err)
	})
}

func TestLossReasonCache(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{}
	c := NewLossReasonCache(fc, DefaultTTL)

	m, err := c.Ensure(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Precio alto", m["5"])

	_, err = c.Ensure(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fc.lossCalls.Load())
}
