package normalization

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stsdash/combo"
)

func TestFlattenByExpandsCombos(t *testing.T) {
	date := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		{USI: "STS-1", NotificationDate: date, UnderlyingAssets: "rmbs",
			OriginatorCountry: combo.NewCombo("DE", "AT")},
		{USI: "STS-2", NotificationDate: date, UnderlyingAssets: "sme loans",
			OriginatorCountry: combo.Of("IE")},
	}

	flat := FlattenBy(rows, ColOriginatorCountry)
	require.Len(t, flat, 3)

	// Derived rows carry one member each, a cleared USI and every other
	// column intact.
	var derived, originals int
	for _, r := range flat {
		if r.USI == "" {
			derived++
			assert.Equal(t, 1, r.OriginatorCountry.Len())
			assert.False(t, r.OriginatorCountry.IsMulti())
			assert.Equal(t, date, r.NotificationDate)
			assert.Equal(t, "rmbs", r.UnderlyingAssets)
		} else {
			originals++
			assert.Equal(t, "STS-2", r.USI)
		}
	}
	assert.Equal(t, 2, derived)
	assert.Equal(t, 1, originals)

	// Input not mutated.
	assert.True(t, rows[0].OriginatorCountry.IsMulti())
	assert.Equal(t, "STS-1", rows[0].USI)
}

func TestFlattenByNoCombosIsIdentity(t *testing.T) {
	rows := []Row{
		{USI: "STS-1", OriginatorCountry: combo.Of("DE")},
		{USI: "STS-2", OriginatorCountry: combo.None[string]()},
	}
	flat := FlattenBy(rows, ColOriginatorCountry)
	assert.Equal(t, rows, flat)
}

// Flatten is a partition-preserving expansion: the output size equals the
// sum over input rows of the member count (or 1 for scalars and missing).
func TestFlattenByPartitionPreserving(t *testing.T) {
	gofakeit.Seed(11)

	codes := []string{"DE", "FR", "IE", "NL", "ES", "IT", "BE", "AT"}
	rows := make([]Row, 0, 200)
	wantTotal := 0
	for i := 0; i < 200; i++ {
		r := Row{
			USI:              gofakeit.UUID(),
			UnderlyingAssets: gofakeit.RandomString([]string{"rmbs", "auto loans / leases", "SME loans"}),
		}
		n := gofakeit.Number(0, 4)
		switch n {
		case 0:
			r.OriginatorCountry = combo.None[string]()
			wantTotal++
		case 1:
			r.OriginatorCountry = combo.Of(gofakeit.RandomString(codes))
			wantTotal++
		default:
			members := make(map[string]struct{})
			for len(members) < n {
				members[gofakeit.RandomString(codes)] = struct{}{}
			}
			vals := make([]string, 0, n)
			for m := range members {
				vals = append(vals, m)
			}
			r.OriginatorCountry = combo.NewCombo(vals...)
			wantTotal += n
		}
		rows = append(rows, r)
	}

	flat := FlattenBy(rows, ColOriginatorCountry)
	assert.Equal(t, wantTotal, len(flat))

	// No Combos survive flattening on the target column.
	for _, r := range flat {
		assert.False(t, r.OriginatorCountry.IsMulti())
	}
}

func TestFlattenByTwice(t *testing.T) {
	// Cross-tabulation flattens by two columns in sequence.
	rows := []Row{
		{USI: "STS-1",
			OriginatorCountry: combo.NewCombo("DE", "FR"),
			IssuerCountry:     combo.NewCombo("IE", "LU")},
	}
	flat := FlattenBy(FlattenBy(rows, ColOriginatorCountry), ColIssuerCountry)
	require.Len(t, flat, 4)
	for _, r := range flat {
		assert.Empty(t, r.USI)
		assert.Equal(t, 1, r.OriginatorCountry.Len())
		assert.Equal(t, 1, r.IssuerCountry.Len())
	}
}
