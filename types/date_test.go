package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	date, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", date.String())

	for _, bad := range []string{"2024-1-10", "10/01/2024", "2024-01-10T00:00:00Z", "not-a-date"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Due Date `json:"due"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2024-01-10"}`), &payload))
	assert.Equal(t, NewDate(2024, 1, 10), payload.Due)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-01-10"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"due":null}`), &payload))
	assert.True(t, payload.Due.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"due":"01-10-2024"}`), &payload))
}
