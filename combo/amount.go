package combo

import "fmt"

// Amount is a monetary value in its reporting currency, as extracted from
// reference data (total issued nominal amount).
type Amount struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %.2f", a.Currency, a.Value)
}

// ConvertToEUR collapses an amount field into a single EUR figure. Rates are
// XXX/EUR reference rates, so each amount is divided by its rate; EUR itself
// always converts at 1. A Combo of amounts in several currencies sums to one
// number because everything converts to the same currency. This is a summing
// collapse, unlike the value-reconciling collapse used during enrichment.
//
// A missing rate for a currency present in the data means the rate table
// needs updating and is returned as an error.
func ConvertToEUR(v Value[Amount], rates map[string]float64) (float64, error) {
	if v.IsMissing() {
		return 0, fmt.Errorf("no amount to convert")
	}
	var total float64
	for _, a := range v.Members() {
		rate := 1.0
		if a.Currency != "EUR" {
			r, ok := rates[a.Currency]
			if !ok {
				return 0, fmt.Errorf("no EUR exchange rate for currency %q", a.Currency)
			}
			rate = r
		}
		total += a.Value / rate
	}
	return total, nil
}

// ConvertSeriesToEUR converts every non-missing entry of a series, returning
// the converted figures and a parallel mask of which entries were present.
func ConvertSeriesToEUR(series []Value[Amount], rates map[string]float64) ([]float64, []bool, error) {
	out := make([]float64, len(series))
	present := make([]bool, len(series))
	for i, v := range series {
		if v.IsMissing() {
			continue
		}
		eur, err := ConvertToEUR(v, rates)
		if err != nil {
			return nil, nil, err
		}
		out[i] = eur
		present[i] = true
	}
	return out, present, nil
}
