package session

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteFile saves rec as indented JSON at path. The write goes through a
// temp file and a rename so a crash never leaves a half-written record.
func WriteFile(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing session record temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming session record file: %w", err)
	}
	return nil
}

// ReadFile loads a record written by WriteFile.
func ReadFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("reading session record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshaling session record: %w", err)
	}
	return rec, nil
}
