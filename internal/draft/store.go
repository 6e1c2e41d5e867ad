package draft

import (
	"context"
	"encoding/json"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/common/metrics"
)

// CurrentSchemaVersion is written into every envelope unless a Store is
// built with an explicit version.
const CurrentSchemaVersion = 1

// envelope wraps every stored value with the schema version it was written under.
type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

// Store is the draft of one inspection type. Keys are "<prefix>_<field>".
type Store struct {
	backend Backend
	prefix  string
	version int
	logger  logger.Logger
}

func NewStore(backend Backend, prefix string, version int, log logger.Logger) *Store {
	if version <= 0 {
		version = CurrentSchemaVersion
	}
	return &Store{
		backend: backend,
		prefix:  prefix,
		version: version,
		logger:  log.WithFields(map[string]interface{}{"draft": prefix}),
	}
}

// Key returns the backend key for field.
func (s *Store) Key(field string) string {
	return s.prefix + "_" + field
}

func (s *Store) Prefix() string { return s.prefix }

// Get reads field into a fresh T. Absent, unreadable, corrupt or
// version-mismatched values yield def; bad values are dropped from the backend.
func Get[T any](ctx context.Context, s *Store, field string, def T) T {
	key := s.Key(field)

	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Draft read failed, using default", map[string]interface{}{
			"key":   key,
			"error": errors.NewDraftStorageFailedError(key, err),
		})
		return def
	}
	if !ok {
		return def
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || len(env.Data) == 0 {
		if err == nil {
			err = errMissingData
		}
		s.discard(ctx, key, "corrupt", err)
		return def
	}
	if env.V != s.version {
		s.discard(ctx, key, "version_mismatch", nil)
		return def
	}

	var value T
	if err := json.Unmarshal(env.Data, &value); err != nil {
		s.discard(ctx, key, "corrupt", err)
		return def
	}
	return value
}

// Set stores a JSON copy of value under field.
func Set[T any](ctx context.Context, s *Store, field string, value T) error {
	key := s.Key(field)

	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewDraftStorageFailedError(key, err)
	}
	raw, err := json.Marshal(envelope{V: s.version, Data: data})
	if err != nil {
		return errors.NewDraftStorageFailedError(key, err)
	}
	if err := s.backend.Set(ctx, key, string(raw)); err != nil {
		return errors.NewDraftStorageFailedError(key, err)
	}
	return nil
}

// Remove returns a single field to its default.
func (s *Store) Remove(ctx context.Context, field string) error {
	key := s.Key(field)
	if err := s.backend.Delete(ctx, key); err != nil {
		return errors.NewDraftStorageFailedError(key, err)
	}
	return nil
}

// Clear drops every field of this draft.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.DeletePrefix(ctx, s.prefix+"_"); err != nil {
		return errors.NewDraftStorageFailedError(s.prefix+"_*", err)
	}
	s.logger.Info("Draft cleared", nil)
	return nil
}

func (s *Store) discard(ctx context.Context, key, reason string, cause error) {
	fields := map[string]interface{}{
		"key":           key,
		"reason":        reason,
		"schemaVersion": s.version,
	}
	if cause != nil {
		fields["error"] = errors.NewDraftCorruptError(key, cause)
	}
	s.logger.Warn("Discarding unreadable draft value", fields)
	metrics.DraftDiscards.WithLabelValues(reason).Inc()

	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete discarded draft value", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}
}

type draftError string

func (e draftError) Error() string { return string(e) }

const errMissingData = draftError("envelope has no data")
