package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSessionCookie(t *testing.T) {
	in := TableSession{
		TableID:   5,
		SessionID: "b7c1",
		DeviceID:  "D1",
		CreatedAt: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC),
	}

	raw, err := EncodeTableSession(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tableId":5,"sessionId":"b7c1","deviceId":"D1","createdAt":"2024-03-01T18:30:00Z"}`, raw)

	out, err := DecodeTableSession(raw)
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.SessionID, out.SessionID)

	for _, bad := range []string{"", "{", `{"tableId":5}`, `{"tableId":0,"sessionId":"x","deviceId":"y"}`} {
		_, err := DecodeTableSession(bad)
		assert.ErrorIs(t, err, ErrMalformedSession, bad)
	}
}

func TestTableHelpers(t *testing.T) {
	session := "s1"
	device := "D1"
	table := Table{Status: TableOpen, CurrentSessionID: &session, DeviceID: &device}

	assert.True(t, table.IsOpen())
	assert.True(t, table.BoundTo("D1"))
	assert.False(t, table.BoundTo("D2"))
	assert.True(t, table.HasSession("s1"))
	assert.False(t, table.HasSession("s2"))

	closed := Table{Status: TableClosed}
	assert.False(t, closed.IsOpen())
	assert.False(t, closed.BoundTo("D1"))
	assert.False(t, closed.HasSession(""))
}
