package analytics

import (
	"fmt"
	"math"

	"stsdash/combo"
	"stsdash/normalization"
)

// GDPCorrelation computes the Pearson correlation between the per-country
// securitisation counts and the countries' GDP. Counts are keyed by full
// country name, as is the GDP table; countries without a GDP figure are left
// out of the sample. Fewer than two usable pairs, or a constant series, have
// no defined correlation and return an error.
func GDPCorrelation(counts []CountItem, gdp map[string]float64) (float64, error) {
	var xs, ys []float64
	for _, item := range counts {
		g, ok := gdp[item.Label]
		if !ok {
			continue
		}
		xs = append(xs, float64(item.Count))
		ys = append(ys, g)
	}
	if len(xs) < 2 {
		return 0, fmt.Errorf("not enough countries with GDP data: %d", len(xs))
	}
	return pearson(xs, ys)
}

func pearson(xs, ys []float64) (float64, error) {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, fmt.Errorf("correlation undefined for a constant series")
	}
	return cov / math.Sqrt(varX*varY), nil
}

// TotalInEUR sums the nominal amounts of all rows carrying one, converted to
// EUR at the given reference rates. Rows without an amount contribute
// nothing; a currency missing from the rate table is an error.
func TotalInEUR(rows []normalization.Row, rates map[string]float64) (float64, error) {
	series := make([]combo.Value[combo.Amount], len(rows))
	for i := range rows {
		series[i] = rows[i].NominalAmount
	}
	figures, present, err := combo.ConvertSeriesToEUR(series, rates)
	if err != nil {
		return 0, err
	}
	var total float64
	for i, f := range figures {
		if present[i] {
			total += f
		}
	}
	return total, nil
}

// DifferentIssuerCountry returns the rows whose issuer country differs from
// the originator country, under combo equality (a scalar matching any member
// of a Combo counts as equal). Used for the "cross-border issuance" view.
func DifferentIssuerCountry(rows []normalization.Row) []normalization.Row {
	oc := make([]combo.Value[string], len(rows))
	ic := make([]combo.Value[string], len(rows))
	for i := range rows {
		oc[i] = rows[i].OriginatorCountryFull
		ic[i] = rows[i].IssuerCountryFull
	}
	eq, _ := combo.EqualSeries(ic, oc) // same length by construction
	var out []normalization.Row
	for i, same := range eq {
		if !same && !ic[i].IsMissing() {
			out = append(out, rows[i])
		}
	}
	return out
}
