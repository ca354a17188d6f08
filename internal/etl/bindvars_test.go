package etl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBindVars(t *testing.T) {
	groups, err := ParseBindVars(`[[1, "a", 2.5, true], [9007199254740993, null, "x", false]]`, 3)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{
		{int64(1), "a", 2.5},
		{int64(9007199254740993), nil, "x"},
	}, groups)
}

func TestParseBindVarsEmpty(t *testing.T) {
	groups, err := ParseBindVars("  ", 0)
	require.NoError(t, err)
	require.Nil(t, groups)
}

func TestParseBindVarsRejects(t *testing.T) {
	tests := map[string]struct {
		text string
		cnt  int
	}{
		"malformed":      {`[[1,]]`, 1},
		"not nested":     {`[1, 2]`, 1},
		"object":         {`{"a": 1}`, 1},
		"trailing":       {`[[1]] [[2]]`, 1},
		"no groups":      {`[]`, 1},
		"zero count":     {`[[1]]`, 0},
		"short group":    {`[[1, 2], [1]]`, 2},
		"nested value":   {`[[[1]]]`, 1},
		"negative count": {`[[1]]`, -1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBindVars(tt.text, tt.cnt)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
		})
	}
}
