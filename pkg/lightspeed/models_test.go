package lightspeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIdentity(t *testing.T) {
	t.Run("string id", func(t *testing.T) {
		r := Record{"id": "abc-123", "name": "thing"}
		assert.Equal(t, "abc-123", r.Identity())
	})

	t.Run("numeric id", func(t *testing.T) {
		// JSON numbers decode as float64
		r := Record{"id": float64(42)}
		assert.Equal(t, "42", r.Identity())
	})

	t.Run("no id is stable", func(t *testing.T) {
		a := Record{"name": "x", "qty": float64(3)}
		b := Record{"qty": float64(3), "name": "x"}
		assert.Equal(t, a.Identity(), b.Identity(), "identity is key-order independent")
		assert.NotEmpty(t, a.Identity())
	})

	t.Run("different records differ", func(t *testing.T) {
		a := Record{"name": "x"}
		b := Record{"name": "y"}
		assert.NotEqual(t, a.Identity(), b.Identity())
	})
}

func TestParseEnvelope(t *testing.T) {
	t.Run("data wrapper with pagination", func(t *testing.T) {
		records, pg, err := parseEnvelope("products", []byte(`{"data":[{"id":"1"}],"pagination":{"page":1,"pages":4}}`))
		require.NoError(t, err)
		assert.Len(t, records, 1)
		require.NotNil(t, pg)
		assert.Equal(t, 1, pg.Page)
		assert.Equal(t, 4, pg.Pages)
	})

	t.Run("endpoint keyed", func(t *testing.T) {
		records, pg, err := parseEnvelope("taxes", []byte(`{"taxes":[{"id":"1"},{"id":"2"}]}`))
		require.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Nil(t, pg)
	})

	t.Run("bare array", func(t *testing.T) {
		records, pg, err := parseEnvelope("outlets", []byte(`[{"id":"1"}]`))
		require.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Nil(t, pg)
	})

	t.Run("malformed pagination is ignored", func(t *testing.T) {
		records, pg, err := parseEnvelope("outlets", []byte(`{"data":[{"id":"1"}],"pagination":"oops"}`))
		require.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Nil(t, pg)
	})

	t.Run("not json", func(t *testing.T) {
		_, _, err := parseEnvelope("outlets", []byte(`<html>`))
		require.Error(t, err)
	})
}

func TestEndpoints(t *testing.T) {
	all := DefaultEndpoints()
	assert.Equal(t, len(CoreEndpoints)+len(OptionalEndpoints), len(all))
	assert.Equal(t, "outlets", all[0], "reference data is exported first")

	assert.True(t, IsOptional("gift_cards"))
	assert.False(t, IsOptional("products"))

	assert.True(t, IsValidEndpoint("register_sales"))
	assert.False(t, IsValidEndpoint(""))
	assert.False(t, IsValidEndpoint("../secrets"))
	assert.False(t, IsValidEndpoint("Products"))
}

func TestPageURL(t *testing.T) {
	base := BaseURL("store.retail.lightspeed.app", "2.0")
	assert.Equal(t, "https://store.retail.lightspeed.app/api/2.0", base)

	url := PageURL(base, "products", 3, 200)
	assert.Contains(t, url, "/products?")
	assert.Contains(t, url, "page=3")
	assert.Contains(t, url, "page_size=200")
}
