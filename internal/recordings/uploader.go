package recordings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"vocalize/internal/audios"
	"vocalize/internal/logging"
	"vocalize/internal/notifications"
)

const defaultUploadConcurrency = 2

// AudioUploader sends one recording file.
type AudioUploader interface {
	Upload(ctx context.Context, up audios.Upload) (audios.Audio, error)
}

// Failure is a recording that could not be sent.
type Failure struct {
	Recording Recording
	Err       error
}

// Summary reports one upload pass.
type Summary struct {
	Sent   []Recording
	Failed []Failure
}

// Uploader sends pending recordings.
type Uploader struct {
	queue       *Queue
	audios      AudioUploader
	notifier    notifications.Service
	concurrency int
	logger      *slog.Logger
}

// UploaderOption customises an Uploader.
type UploaderOption func(*Uploader)

// WithConcurrency bounds parallel uploads. Values below one are ignored.
func WithConcurrency(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithUploadLogger sets the logger.
func WithUploadLogger(logger *slog.Logger) UploaderOption {
	return func(u *Uploader) {
		u.logger = logger
	}
}

// NewUploader builds an Uploader.
func NewUploader(queue *Queue, uploader AudioUploader, notifier notifications.Service, opts ...UploaderOption) *Uploader {
	u := &Uploader{queue: queue, audios: uploader, notifier: notifier, concurrency: defaultUploadConcurrency}
	for _, opt := range opts {
		opt(u)
	}
	if u.notifier == nil {
		u.notifier = notifications.NewNoop()
	}
	u.logger = logging.NewComponentLogger(u.logger, "uploader")
	return u
}

// UploadPending sends every pending recording. A failed record does not
// stop the others; the returned error is only set when the pass itself could
// not run or ctx was cancelled.
func (u *Uploader) UploadPending(ctx context.Context) (Summary, error) {
	pending, err := u.queue.Pending(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(pending) == 0 {
		return Summary{}, nil
	}

	var (
		mu      sync.Mutex
		summary Summary
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(u.concurrency)
	for _, rec := range pending {
		group.Go(func() error {
			err := u.uploadOne(gctx, rec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed = append(summary.Failed, Failure{Recording: rec, Err: err})
				logging.WarnWithContext(u.logger, "recording upload failed", "upload_failed",
					logging.String("recording_id", rec.ID),
					logging.Error(err),
					logging.String(logging.FieldImpact, "recording stays pending"),
				)
				return nil
			}
			summary.Sent = append(summary.Sent, rec)
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	u.logger.Info("upload pass finished",
		logging.String(logging.FieldEventType, "upload_pass_finished"),
		logging.Int("sent", len(summary.Sent)),
		logging.Int("failed", len(summary.Failed)),
	)
	if err := u.notifier.NotifyUploadSummary(ctx, len(summary.Sent), len(summary.Failed)); err != nil {
		u.logger.Debug("upload summary notification failed", logging.Error(err))
	}
	return summary, nil
}

func (u *Uploader) uploadOne(ctx context.Context, rec Recording) error {
	blob, err := u.queue.Blobs().Open(ctx, rec.URI)
	if err != nil {
		return fmt.Errorf("open %s: %w", rec.URI, err)
	}
	defer blob.Close()

	if _, err := u.audios.Upload(ctx, audios.Upload{
		FileName:       filepath.Base(rec.URI),
		Content:        blob,
		ParticipantID:  rec.ParticipantID,
		VocalizationID: rec.VocalizationID,
	}); err != nil {
		return err
	}
	return u.queue.MarkSent(ctx, rec.ID)
}
