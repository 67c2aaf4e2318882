package jobd

import "encoding/json"

// StateDocument is the persisted administrative override document, mapped
// 1:1 onto <statedir>/state.json.
type StateDocument struct {
	SchemaVersion int                      `json:"SchemaVersion"`
	Overrides     map[string]OverrideEntry `json:"Overrides"`

	// unknown carries any top-level keys this schema does not name, so a
	// round-trip through StateStore.set never drops data a newer or
	// older jobd version wrote.
	unknown map[string]any
}

// OverrideEntry is one label's persisted admin decision.
type OverrideEntry struct {
	Enabled bool `json:"Enabled"`
}

func defaultStateDocument() StateDocument {
	return StateDocument{
		SchemaVersion: 1,
		Overrides:     make(map[string]OverrideEntry),
	}
}

// MarshalJSON emits the known fields plus any unknown top-level keys
// preserved from the last decode, so a value this jobd version does not
// understand survives a load/store cycle untouched.
func (d StateDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.unknown)+2)
	for k, v := range d.unknown {
		out[k] = v
	}
	out["SchemaVersion"] = d.SchemaVersion
	if d.Overrides == nil {
		out["Overrides"] = map[string]OverrideEntry{}
	} else {
		out["Overrides"] = d.Overrides
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the known fields and stashes everything else into
// unknown for MarshalJSON to re-emit later.
func (d *StateDocument) UnmarshalJSON(data []byte) error {
	raw := make(map[string]any)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	doc := defaultStateDocument()
	if v, ok := raw["SchemaVersion"]; ok {
		if f, ok := v.(float64); ok {
			doc.SchemaVersion = int(f)
		}
		delete(raw, "SchemaVersion")
	}
	if v, ok := raw["Overrides"]; ok {
		if m, ok := v.(map[string]any); ok {
			for label, entryVal := range m {
				entryMap, ok := entryVal.(map[string]any)
				if !ok {
					continue
				}
				enabled, _ := entryMap["Enabled"].(bool)
				doc.Overrides[label] = OverrideEntry{Enabled: enabled}
			}
		}
		delete(raw, "Overrides")
	}
	if len(raw) > 0 {
		doc.unknown = raw
	}
	*d = doc
	return nil
}
