package importer

import (
	"encoding/json"
	"fmt"
	"os"
)

// MapFeature is one country polygon in the boundary GeoJSON. Geometry and
// properties pass through untouched; only the feature id is interpreted.
type MapFeature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
}

// MapData is the European boundary data served to the dashboard's map view.
type MapData struct {
	Type     string       `json:"type"`
	Features []MapFeature `json:"features"`
}

// LoadMapData reads the boundary GeoJSON. The source data still identifies
// the United Kingdom as "UK"; the register pipeline uses ISO codes, so that
// feature id is rewritten to "GB".
func LoadMapData(path string) (*MapData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map data: %w", err)
	}
	var m MapData
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse map data: %w", err)
	}
	for i := range m.Features {
		if m.Features[i].ID == "UK" {
			m.Features[i].ID = "GB"
		}
	}
	return &m, nil
}

// Filter returns a copy of the map data containing only the features whose
// id appears in codes. The receiver is unchanged.
func (m *MapData) Filter(codes map[string]bool) *MapData {
	out := &MapData{Type: m.Type}
	for _, f := range m.Features {
		if codes[f.ID] {
			out.Features = append(out.Features, f)
		}
	}
	return out
}
