package commands

import (
	"encoding/json"
	"io"

	"github.com/goliatone/go-shiftboard/recordset"
)

// maxNesting bounds how deep referenced records are expanded in output.
const maxNesting = 3

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// plain converts records, including referenced ones, into JSON-ready maps.
// Beyond maxNesting a record is printed as its id.
func plain(v any, depth int) any {
	switch x := v.(type) {
	case *recordset.Record:
		if x == nil {
			return nil
		}
		if depth >= maxNesting {
			return x.ID()
		}
		return plain(x.Fields(), depth+1)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = plain(val, depth)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val, depth)
		}
		return out
	}
	return v
}

func plainRecords(records []*recordset.Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = plain(r, 0)
	}
	return out
}
