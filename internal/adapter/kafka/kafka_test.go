package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	local := time.Date(2016, 1, 1, 3, 0, 0, 0, time.UTC)
	utc := local.Add(5 * time.Hour)
	unit := "1"
	so2 := 1200.5
	row := domain.EmissionRow{
		ORISPL:    602,
		UnitID:    &unit,
		SO2Lbs:    &so2,
		TimeLocal: local,
		Time:      &utc,
		Extra:     map[string]string{"gload (mw)": "640"},
	}

	msg, err := serializeToMessage("2016md01.zip", row)
	require.NoError(t, err)

	assert.Equal(t, []byte("602"), msg.Key)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("2016md01.zip"), msg.Headers[0].Value)
	assert.Equal(t, "time_local", msg.Headers[1].Key)
	assert.Equal(t, []byte("2016-01-01T03:00:00Z"), msg.Headers[1].Value)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.InDelta(t, 602, decoded["orispl_code"], 0)
	assert.Equal(t, "1", decoded["unitid"])
	assert.InDelta(t, 1200.5, decoded["so2_lbs"], 0)
	assert.Equal(t, "2016-01-01T08:00:00Z", decoded["time"])
	assert.InDelta(t, domain.PoundsToKilograms(1200.5), decoded["so2_kg"], 1e-9)
	assert.NotContains(t, decoded, "nox_lbs")
	assert.NotContains(t, decoded, "nox_kg")
}

func TestSerializeToMessage_NoUTCTime(t *testing.T) {
	msg, err := serializeToMessage("2016md01.zip", domain.EmissionRow{ORISPL: 1571})
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), `"time":`)
}
