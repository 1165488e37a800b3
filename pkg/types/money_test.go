package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyUnmarshalAcceptsStringsNumbersAndNull(t *testing.T) {
	var payload struct {
		Price    Money `json:"price"`
		Subtotal Money `json:"subtotal"`
		Missing  Money `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":"10.5","subtotal":52,"missing":null}`), &payload))

	assert.Equal(t, "10.50", payload.Price.String())
	assert.Equal(t, "52.00", payload.Subtotal.String())
	assert.True(t, payload.Price.Valid())
	assert.False(t, payload.Missing.Valid())
}

func TestMoneyFormat(t *testing.T) {
	m := MustMoney("1999.9")
	assert.Equal(t, "1999.90 RUB", m.Format("rub"))
	assert.Equal(t, "1999.90", m.Format(""))
}

func TestMoneyMarshalRoundsToCents(t *testing.T) {
	out, err := json.Marshal(MustMoney("3"))
	require.NoError(t, err)
	assert.JSONEq(t, `"3.00"`, string(out))

	out, err = json.Marshal(Money{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestParseMoneyRejectsGarbage(t *testing.T) {
	_, err := ParseMoney("ten")
	require.Error(t, err)

	empty, err := ParseMoney("  ")
	require.NoError(t, err)
	assert.False(t, empty.Valid())
}
