package api

import (
	"bytes"
	"encoding/json"
)

// rawOrList decodes a JSON array into list and anything else into obj.
type rawOrList struct {
	obj  any
	list any
}

func (r *rawOrList) UnmarshalJSON(b []byte) error {
	if trimmed := bytes.TrimLeft(b, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(b, r.list)
	}
	return json.Unmarshal(b, r.obj)
}
