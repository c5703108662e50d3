package recordings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocalize/internal/apierr"
	"vocalize/internal/kvstore"
	"vocalize/internal/logging"
	"vocalize/internal/notifications"
)

// Key stores the recording list.
const Key = "recordings"

// MinBlobSize is the smallest audio file accepted, in bytes.
const MinBlobSize = 50

// ErrNotFound is returned for unknown recording ids.
var ErrNotFound = errors.New("recording not found")

// Status tracks a recording through upload.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
)

// Recording is one locally saved audio and its labels.
type Recording struct {
	ID               string `json:"id"`
	URI              string `json:"uri"`
	Timestamp        int64  `json:"timestamp"`
	Duration         int    `json:"duration"`
	VocalizationID   int64  `json:"vocalizationId"`
	VocalizationName string `json:"vocalizationName"`
	ParticipantID    int64  `json:"participanteId"`
	Status           Status `json:"status"`
}

// SavedAt returns the recording timestamp.
func (r Recording) SavedAt() time.Time { return time.UnixMilli(r.Timestamp) }

// Draft is a recording about to be saved.
type Draft struct {
	URI              string
	Duration         int
	VocalizationID   int64
	VocalizationName string
	ParticipantID    int64
}

// Option customises a Queue.
type Option func(*Queue)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// Queue is the persisted list of recordings.
type Queue struct {
	mu       sync.Mutex
	store    kvstore.Store
	blobs    BlobStore
	notifier notifications.Service
	now      func() time.Time
	logger   *slog.Logger
}

// NewQueue builds a Queue. A nil notifier disables pending signals.
func NewQueue(store kvstore.Store, blobs BlobStore, notifier notifications.Service, opts ...Option) *Queue {
	q := &Queue{store: store, blobs: blobs, notifier: notifier, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	if q.notifier == nil {
		q.notifier = notifications.NewNoop()
	}
	q.logger = logging.NewComponentLogger(q.logger, "recordings")
	return q
}

// Blobs returns the blob store.
func (q *Queue) Blobs() BlobStore { return q.blobs }

// Save validates d and appends it as pending.
func (q *Queue) Save(ctx context.Context, d Draft) (Recording, error) {
	if d.VocalizationID == 0 {
		return Recording{}, apierr.New(apierr.KindValidation, "Por favor, selecione um rótulo de vocalização.")
	}
	if d.ParticipantID == 0 {
		return Recording{}, apierr.New(apierr.KindValidation, "Por favor, selecione um participante.")
	}
	if strings.TrimSpace(d.URI) == "" {
		return Recording{}, apierr.New(apierr.KindValidation, "URI da gravação não encontrada.")
	}
	size, err := q.blobs.Stat(ctx, d.URI)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Recording{}, apierr.Wrap(apierr.KindValidation, "Arquivo de áudio não existe.", err)
		}
		return Recording{}, fmt.Errorf("stat recording: %w", err)
	}
	if size < MinBlobSize {
		return Recording{}, apierr.New(apierr.KindValidation, "Arquivo de áudio inválido ou muito pequeno.")
	}

	name := strings.TrimSpace(d.VocalizationName)
	if name == "" {
		name = "Desconhecido"
	}
	rec := Recording{
		ID:               uuid.NewString(),
		URI:              d.URI,
		Timestamp:        q.now().UnixMilli(),
		Duration:         d.Duration,
		VocalizationID:   d.VocalizationID,
		VocalizationName: name,
		ParticipantID:    d.ParticipantID,
		Status:           StatusPending,
	}
	err = q.mutate(ctx, func(list []Recording) ([]Recording, error) {
		return append(list, rec), nil
	})
	if err != nil {
		return Recording{}, err
	}
	q.logger.Info("recording saved",
		logging.String(logging.FieldEventType, "recording_saved"),
		logging.String("recording_id", rec.ID),
		logging.Int64("size_bytes", size),
	)
	return rec, nil
}

// List returns every recording in save order.
func (q *Queue) List(ctx context.Context) ([]Recording, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list, err := q.load(ctx)
	return list, err
}

// Pending returns the recordings not yet sent.
func (q *Queue) Pending(ctx context.Context) ([]Recording, error) {
	list, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, rec := range list {
		if rec.Status == StatusPending {
			out = append(out, rec)
		}
	}
	return out, nil
}

// HasPending reports whether any recording is waiting.
func (q *Queue) HasPending(ctx context.Context) (bool, error) {
	pending, err := q.Pending(ctx)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

// MarkSent flags a recording as uploaded.
func (q *Queue) MarkSent(ctx context.Context, id string) error {
	return q.mutate(ctx, func(list []Recording) ([]Recording, error) {
		for i := range list {
			if list[i].ID == id {
				list[i].Status = StatusSent
				return list, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
}

// Discard removes a recording and deletes its audio. A blob that cannot be
// removed is logged and left behind.
func (q *Queue) Discard(ctx context.Context, id string) error {
	var removed Recording
	err := q.mutate(ctx, func(list []Recording) ([]Recording, error) {
		for i := range list {
			if list[i].ID == id {
				removed = list[i]
				return append(list[:i], list[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		return err
	}
	if err := q.blobs.Remove(ctx, removed.URI); err != nil {
		logging.WarnWithContext(q.logger, "recording file not removed", "blob_remove_failed",
			logging.String("recording_id", id),
			logging.String("uri", removed.URI),
			logging.Error(err),
			logging.String(logging.FieldImpact, "audio file stays on disk"),
		)
	}
	return nil
}

func (q *Queue) mutate(ctx context.Context, fn func([]Recording) ([]Recording, error)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load(ctx)
	if err != nil {
		return err
	}
	list, err = fn(list)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode recordings: %w", err)
	}
	if err := q.store.Set(ctx, Key, string(payload)); err != nil {
		return fmt.Errorf("write recordings: %w", err)
	}
	q.signal(ctx, list)
	return nil
}

// load reads the list, assigning ids to records saved without one.
func (q *Queue) load(ctx context.Context) ([]Recording, error) {
	raw, ok, err := q.store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("read recordings: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Recording{}, nil
	}
	var list []Recording
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, apierr.Wrap(apierr.KindStorageCorruption, "recording list is unreadable", err)
	}
	assigned := false
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = uuid.NewString()
			assigned = true
		}
		if list[i].Status == "" {
			list[i].Status = StatusPending
		}
	}
	if assigned {
		if payload, err := json.Marshal(list); err == nil {
			if err := q.store.Set(ctx, Key, string(payload)); err != nil {
				q.logger.Debug("legacy recording ids not persisted", logging.Error(err))
			}
		}
	}
	return list, nil
}

func (q *Queue) signal(ctx context.Context, list []Recording) {
	pending := false
	for _, rec := range list {
		if rec.Status == StatusPending {
			pending = true
			break
		}
	}
	if err := q.notifier.PendingChanged(ctx, pending); err != nil {
		logging.WarnWithContext(q.logger, "pending signal failed", "pending_signal_failed",
			logging.Bool("has_pending", pending),
			logging.Error(err),
			logging.String(logging.FieldImpact, "reminder state may be out of date"),
		)
	}
}
