package scale

import (
	"encoding/json"

	"ftnirs/internal/errors"
)

// Marshal dumps the fitted scaler parameters to a portable JSON form.
// Only the few statistics each kind needs are stored, never an opaque
// blob, so artifacts stay auditable across versions.
func Marshal(s *Scaler) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s scaler", s.Kind)
	}
	return data, nil
}

// Unmarshal restores a fitted scaler from its JSON parameter dump
func Unmarshal(data []byte) (*Scaler, error) {
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "failed to decode scaler parameters")
	}
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return nil, err
	}
	return &s, nil
}
