package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsColumn(t *testing.T) {
	v, err := Metrics{"S", "M"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["S","M"]`, v)

	v, err = Metrics(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var m Metrics
	require.NoError(t, m.Scan([]byte(`["Red","Blue"]`)))
	assert.Equal(t, Metrics{"Red", "Blue"}, m)

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	assert.Error(t, m.Scan(42))
}

func TestProductVariantSelection(t *testing.T) {
	p := Product{Variants: []Variant{{ID: "v1"}, {ID: "v2"}}}

	v, ok := p.Variant("")
	require.True(t, ok)
	assert.Equal(t, "v1", v.ID)

	v, ok = p.Variant("v2")
	require.True(t, ok)
	assert.Equal(t, "v2", v.ID)

	_, ok = p.Variant("missing")
	assert.False(t, ok)

	_, ok = (&Product{}).Variant("")
	assert.False(t, ok)
}
