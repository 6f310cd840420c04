// Package artifact persists a trained model together with an append-only
// metadata history, so the scalers and column contract that produced the
// weights always travel with them.
package artifact

import (
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"ftnirs/internal/errors"
	"ftnirs/internal/network"
	"ftnirs/internal/scale"
)

// RecordSchemaVersion tracks the metadata record layout so future fields
// can be added without breaking old readers
const RecordSchemaVersion = 1

// Record is one entry of the artifact's metadata history. The most recent
// record is authoritative for inference.
type Record struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
	ColumnNames   []string  `json:"column_names"`
	Description   string    `json:"description"`
	Approach      string    `json:"approach"`
	ScalerX       string    `json:"scaler_x"` // base64 JSON parameter dump
	ScalerY       string    `json:"scaler_y"`
}

// Envelope is the on-disk artifact layout: serialized network weights
// plus one optional text attachment holding the metadata history
type Envelope struct {
	Model           *network.Network
	MetadataHistory []byte // JSON array of Record; empty means no history
}

// Save writes the model and an appended metadata record to path. The
// history of priorPath is carried forward when it exists and is readable;
// a missing or unreadable prior never fails the save, it just starts an
// empty history.
func Save(path string, model *network.Network, priorPath string,
	columnNames []string, description, approach string,
	scalerX, scalerY *scale.Scaler) error {

	encX, err := encodeScaler(scalerX)
	if err != nil {
		return err
	}
	encY, err := encodeScaler(scalerY)
	if err != nil {
		return err
	}

	history := priorHistory(priorPath)
	history = append(history, Record{
		SchemaVersion: RecordSchemaVersion,
		RunID:         uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		ColumnNames:   columnNames,
		Description:   description,
		Approach:      approach,
		ScalerX:       encX,
		ScalerY:       encY,
	})
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return errors.Wrap(err, "failed to encode metadata history")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create artifact %s", path)
	}
	defer f.Close()
	env := Envelope{Model: model, MetadataHistory: historyJSON}
	if err := gob.NewEncoder(f).Encode(&env); err != nil {
		return errors.Wrapf(err, "failed to write artifact %s", path)
	}
	return nil
}

// priorHistory reads the metadata history of an existing artifact.
// Read failures are treated as "no prior history".
func priorHistory(path string) []Record {
	if path == "" {
		return nil
	}
	env, err := readEnvelope(path)
	if err != nil {
		return nil
	}
	history, err := decodeHistory(env)
	if err != nil {
		return nil
	}
	return history
}

// LoadModel reads only the network weights from an artifact
func LoadModel(path string) (*network.Network, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	if env.Model == nil {
		return nil, errors.Newf(errors.CodeArtifactError, "artifact %s holds no model", path)
	}
	return env.Model, nil
}

// Load reads the network weights and the latest metadata record
func Load(path string) (*network.Network, *Record, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, nil, err
	}
	rec, err := latestRecord(env, path)
	if err != nil {
		return nil, nil, err
	}
	return env.Model, rec, nil
}

// LoadMetadata reads only the latest metadata record. Unlike save-time
// history reads, a missing history here is surfaced as NoMetadataError.
func LoadMetadata(path string) (*Record, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	return latestRecord(env, path)
}

// History returns the full ordered metadata history of an artifact
func History(path string) ([]Record, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	if len(env.MetadataHistory) == 0 {
		return nil, errors.NoMetadataError(path)
	}
	return decodeHistory(env)
}

// Scalers decodes both fitted scalers from a metadata record
func (r *Record) Scalers() (scalerX, scalerY *scale.Scaler, err error) {
	scalerX, err = decodeScaler(r.ScalerX)
	if err != nil {
		return nil, nil, err
	}
	scalerY, err = decodeScaler(r.ScalerY)
	if err != nil {
		return nil, nil, err
	}
	return scalerX, scalerY, nil
}

func readEnvelope(path string) (*Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open artifact %s", path)
	}
	defer f.Close()
	var env Envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, errors.Wrapf(err, "failed to decode artifact %s", path)
	}
	return &env, nil
}

func decodeHistory(env *Envelope) ([]Record, error) {
	var history []Record
	if err := json.Unmarshal(env.MetadataHistory, &history); err != nil {
		return nil, errors.Wrap(err, "failed to decode metadata history")
	}
	return history, nil
}

func latestRecord(env *Envelope, path string) (*Record, error) {
	if len(env.MetadataHistory) == 0 {
		return nil, errors.NoMetadataError(path)
	}
	history, err := decodeHistory(env)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, errors.NoMetadataError(path)
	}
	return &history[len(history)-1], nil
}

func encodeScaler(s *scale.Scaler) (string, error) {
	if s == nil {
		return "", nil
	}
	data, err := scale.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeScaler(enc string) (*scale.Scaler, error) {
	if enc == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode scaler attachment")
	}
	return scale.Unmarshal(data)
}
