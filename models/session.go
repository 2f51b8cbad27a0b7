package models

import (
	"encoding/json"
	"errors"
	"time"
)

// TableSession is the capability a customer device carries in the
// table_session cookie. It is never persisted; the Table row decides
// whether it is still honoured.
type TableSession struct {
	TableID   uint      `json:"tableId"`
	SessionID string    `json:"sessionId"`
	DeviceID  string    `json:"deviceId"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrMalformedSession = errors.New("malformed table session")

func EncodeTableSession(s TableSession) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func DecodeTableSession(value string) (*TableSession, error) {
	var s TableSession
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return nil, ErrMalformedSession
	}
	if s.TableID == 0 || s.SessionID == "" || s.DeviceID == "" {
		return nil, ErrMalformedSession
	}
	return &s, nil
}
