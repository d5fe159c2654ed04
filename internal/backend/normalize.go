package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var agentIDKeys = []string{"agent_id", "id", "agentId"}

// AgentID pulls the agent id out of a loosely shaped create reply, trying
// agent_id, id and agentId in that order.
func AgentID(payload []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return "", fmt.Errorf("%w: agent id: %v", ErrMissingField, err)
	}
	for _, k := range agentIDKeys {
		if id, ok := idString(m[k]); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: agent id", ErrMissingField)
}

func idString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		f, err := t.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		if f == math.Trunc(f) {
			return strconv.FormatFloat(f, 'f', 0, 64), true
		}
		return t.String(), true
	case float64:
		return idString(json.Number(strconv.FormatFloat(t, 'f', -1, 64)))
	}
	return "", false
}

// FlexID accepts either a JSON string or number and keeps numeric ids
// numeric on the way back out.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if v == nil {
		*f = ""
		return nil
	}
	s, ok := idString(v)
	if !ok {
		return fmt.Errorf("%w: id", ErrMissingField)
	}
	*f = FlexID(s)
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	if i, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(strconv.FormatInt(i, 10)), nil
	}
	return json.Marshal(string(f))
}
