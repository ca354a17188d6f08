package etl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseBindVars decodes the bind-variable groups of a query. text must be a
// JSON array of arrays; each group supplies the first cnt values of one
// execution. Empty text means the query runs once without binds.
func ParseBindVars(text string, cnt int) ([][]interface{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw [][]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &ConfigError{Code: CodeIllegalValue, Msg: fmt.Sprintf("querySqlBindVars is not an array of arrays: %s", text), Err: err}
	}
	if dec.More() {
		return nil, &ConfigError{Code: CodeIllegalValue, Msg: fmt.Sprintf("querySqlBindVars has trailing data: %s", text)}
	}
	if len(raw) == 0 {
		return nil, &ConfigError{Code: CodeIllegalValue, Msg: "querySqlBindVars holds no bind groups"}
	}
	if cnt <= 0 {
		return nil, &ConfigError{Code: CodeRequiredValue, Msg: fmt.Sprintf("bindValCnt must be positive when querySqlBindVars is set, got %d", cnt)}
	}

	groups := make([][]interface{}, len(raw))
	for i, g := range raw {
		if len(g) < cnt {
			return nil, &ConfigError{Code: CodeIllegalValue, Msg: fmt.Sprintf("bind group %d has %d values, want %d", i, len(g), cnt)}
		}
		vals := make([]interface{}, cnt)
		for j := 0; j < cnt; j++ {
			v, err := bindValue(g[j])
			if err != nil {
				return nil, &ConfigError{Code: CodeIllegalValue, Msg: fmt.Sprintf("bind group %d value %d", i, j), Err: err}
			}
			vals[j] = v
		}
		groups[i] = vals
	}
	return groups, nil
}

func bindValue(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported bind value %v (%T)", v, v)
	}
}
