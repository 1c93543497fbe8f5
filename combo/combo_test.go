package combo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComboOrderIndependence(t *testing.T) {
	a := NewCombo("DE", "AT", "FR")
	b := NewCombo("FR", "DE", "AT")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, []string{"AT", "DE", "FR"}, a.Members())
}

func TestNewComboCollapsesDuplicates(t *testing.T) {
	v := NewCombo("IE", "IE", "IE")
	assert.Equal(t, 1, v.Len())
	assert.True(t, v.IsMulti())
}

func TestNewComboEmptyIsMissing(t *testing.T) {
	v := NewCombo[string]()
	assert.True(t, v.IsMissing())
	assert.Equal(t, 0, v.Len())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value[string]
		want bool
	}{
		{"scalar equal", Of("DE"), Of("DE"), true},
		{"scalar not equal", Of("DE"), Of("AT"), false},
		{"combo set equality", NewCombo("DE", "AT"), NewCombo("AT", "DE"), true},
		{"combo different sets", NewCombo("DE", "AT"), NewCombo("DE", "FR"), false},
		{"combo subset is not equal", NewCombo("DE"), NewCombo("DE", "AT"), false},
		{"scalar member of combo", Of("DE"), NewCombo("DE", "AT"), true},
		{"combo contains scalar", NewCombo("DE", "AT"), Of("AT"), true},
		{"scalar not member", Of("IT"), NewCombo("DE", "AT"), false},
		{"missing equals missing", None[string](), None[string](), true},
		{"missing not equal scalar", None[string](), Of("DE"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestEqualSeries(t *testing.T) {
	a := []Value[string]{Of("DE"), NewCombo("DE", "AT"), None[string]()}
	b := []Value[string]{NewCombo("DE", "FR"), NewCombo("AT", "DE"), None[string]()}

	got, err := EqualSeries(a, b)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, got)

	_, err = EqualSeries(a, b[:2])
	assert.Error(t, err)
}

func TestReplace(t *testing.T) {
	mapping := map[string]string{"UK": "GB"}

	assert.Equal(t, Of("GB"), Replace(Of("UK"), mapping))
	assert.Equal(t, Of("DE"), Replace(Of("DE"), mapping))
	assert.True(t, NewCombo("GB", "DE").Equal(Replace(NewCombo("UK", "DE"), mapping)))

	// Empty mapping leaves any value untouched.
	v := NewCombo("UK", "DE")
	assert.True(t, v.Equal(Replace(v, map[string]string{})))
	assert.Equal(t, Of("UK"), Replace(Of("UK"), map[string]string{}))
	assert.True(t, Replace(None[string](), mapping).IsMissing())
}

func TestDistinctMembers(t *testing.T) {
	series := []Value[string]{
		Of("XS1"),
		NewCombo("XS2", "XS3"),
		None[string](),
		NewCombo("XS1", "XS4"),
	}
	assert.Equal(t, []string{"XS1", "XS2", "XS3", "XS4"}, DistinctMembers(series))
}

func TestValueAsMapKey(t *testing.T) {
	counts := map[string]int{}
	counts[NewCombo("DE", "AT").Key()]++
	counts[NewCombo("AT", "DE").Key()]++
	assert.Equal(t, 2, counts["AT / DE"])
}

func TestConvertToEUR(t *testing.T) {
	rates := map[string]float64{"GBP": 0.85, "USD": 1.10}

	got, err := ConvertToEUR(Of(Amount{Currency: "GBP", Value: 85}), rates)
	require.NoError(t, err)
	assert.InDelta(t, 100, got, 1e-9)

	// EUR always converts at rate 1, even when absent from the table.
	got, err = ConvertToEUR(Of(Amount{Currency: "EUR", Value: 42}), rates)
	require.NoError(t, err)
	assert.InDelta(t, 42, got, 1e-9)

	// A multi-currency Combo collapses to one summed figure.
	got, err = ConvertToEUR(NewCombo(
		Amount{Currency: "GBP", Value: 85},
		Amount{Currency: "USD", Value: 110},
	), rates)
	require.NoError(t, err)
	assert.InDelta(t, 200, got, 1e-9)

	_, err = ConvertToEUR(Of(Amount{Currency: "JPY", Value: 1}), rates)
	assert.Error(t, err)

	_, err = ConvertToEUR(None[Amount](), rates)
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	type row struct {
		Country Value[string] `json:"country"`
	}

	for _, v := range []Value[string]{None[string](), Of("DE"), NewCombo("DE", "AT")} {
		data, err := json.Marshal(row{Country: v})
		require.NoError(t, err)
		var back row
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, v.Equal(back.Country), "round trip of %v", v)
	}
}
