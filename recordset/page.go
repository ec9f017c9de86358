package recordset

import (
	"github.com/mitchellh/mapstructure"
)

// page is one decoded list response.
type page struct {
	Count      int                         `mapstructure:"count"`
	Info       PageInfo                    `mapstructure:"page"`
	Referenced map[string][]map[string]any `mapstructure:"referenced_objects"`

	rows []map[string]any
}

// decodePage validates the shape of a list response. Counts and page offsets
// may arrive as strings ("count": "1"), so decoding is weakly typed.
func decodePage(resp Response, plural string) (*page, error) {
	if resp == nil {
		return nil, malformedf("empty response")
	}
	if _, ok := resp["count"]; !ok {
		return nil, malformedf("missing count")
	}

	var p page
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]any(resp)); err != nil {
		return nil, malformedf("%v", err)
	}
	if p.Count < 0 {
		return nil, malformedf("negative count %d", p.Count)
	}
	if p.Count == 0 {
		return &p, nil
	}

	raw, ok := resp[plural]
	if !ok {
		return nil, malformedf("missing %q rows", plural)
	}
	switch rows := raw.(type) {
	case []map[string]any:
		p.rows = rows
	case []any:
		p.rows = make([]map[string]any, 0, len(rows))
		for i, row := range rows {
			m, ok := row.(map[string]any)
			if !ok {
				return nil, malformedf("%s[%d] is %T, not an object", plural, i, row)
			}
			p.rows = append(p.rows, m)
		}
	default:
		return nil, malformedf("%q is %T, not an array", plural, raw)
	}
	return &p, nil
}

// firstRow extracts the first row of a list response, used to load a single
// record through a select-by-id list call.
func firstRow(resp Response, plural string) (map[string]any, bool, error) {
	p, err := decodePage(resp, plural)
	if err != nil {
		return nil, false, err
	}
	if len(p.rows) == 0 {
		return nil, false, nil
	}
	return p.rows[0], true, nil
}
