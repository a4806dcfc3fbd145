package store

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/nvandessel/supplyshock/internal/session"
)

// encodeRecord serializes rec as snappy-compressed JSON.
func encodeRecord(rec session.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling record %s: %w", rec.ID, err)
	}
	return snappy.Encode(nil, data), nil
}

func decodeRecord(payload []byte) (session.Record, error) {
	data, err := snappy.Decode(nil, payload)
	if err != nil {
		return session.Record{}, fmt.Errorf("decompressing record: %w", err)
	}
	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return session.Record{}, fmt.Errorf("unmarshaling record: %w", err)
	}
	return rec, nil
}
