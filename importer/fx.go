package importer

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// fxObs is one observation in an ECB reference-rate series.
type fxObs struct {
	TimePeriod string `xml:"TIME_PERIOD,attr"`
	ObsValue   string `xml:"OBS_VALUE,attr"`
}

// parseFXSeries extracts every dated observation from an ECB per-currency
// reference-rate XML document, in document order (oldest first).
func parseFXSeries(r io.Reader) ([]fxObs, error) {
	dec := xml.NewDecoder(r)
	var series []fxObs
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FX series: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Obs" {
			continue
		}
		var obs fxObs
		if err := dec.DecodeElement(&obs, &start); err != nil {
			return nil, fmt.Errorf("failed to decode FX observation: %w", err)
		}
		if obs.TimePeriod != "" && obs.ObsValue != "" {
			series = append(series, obs)
		}
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("FX series contained no observations")
	}
	return series, nil
}

// LoadFXRates reads ECB per-currency reference-rate files and returns
// currency → XXX/EUR rate. With a zero date the latest observation of the
// first currency fixes the date used for every other currency, so all rates
// are as of the same day. The rate date actually used is returned.
func LoadFXRates(paths map[string]string, date time.Time) (map[string]float64, time.Time, error) {
	rates := make(map[string]float64, len(paths))
	for currency, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to open FX file for %s: %w", currency, err)
		}
		series, err := parseFXSeries(f)
		f.Close()
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%s: %w", currency, err)
		}

		if date.IsZero() {
			latest := series[len(series)-1]
			rate, err := strconv.ParseFloat(latest.ObsValue, 64)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("bad FX rate %q for %s: %w", latest.ObsValue, currency, err)
			}
			rates[currency] = rate
			date, err = time.Parse("2006-01-02", latest.TimePeriod)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("bad FX date %q for %s: %w", latest.TimePeriod, currency, err)
			}
			continue
		}

		want := date.Format("2006-01-02")
		found := false
		for i := len(series) - 1; i >= 0; i-- {
			if series[i].TimePeriod != want {
				continue
			}
			rate, err := strconv.ParseFloat(series[i].ObsValue, 64)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("bad FX rate %q for %s: %w", series[i].ObsValue, currency, err)
			}
			rates[currency] = rate
			found = true
			break
		}
		if !found {
			return nil, time.Time{}, fmt.Errorf("no %s rate observed on %s", currency, want)
		}
	}
	return rates, date, nil
}
