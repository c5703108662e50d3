package recordings_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vocalize/internal/apierr"
	"vocalize/internal/audios"
	"vocalize/internal/kvstore"
	"vocalize/internal/notifications"
	"vocalize/internal/recordings"
	"vocalize/internal/testsupport"
)

func newQueue(t *testing.T) (*recordings.Queue, *notifications.Recorder, string) {
	t.Helper()
	dir := t.TempDir()
	rec := &notifications.Recorder{}
	now := time.UnixMilli(1_700_000_000_000)
	q := recordings.NewQueue(kvstore.NewMemory(), recordings.NewFileBlobStore(dir), rec,
		recordings.WithClock(func() time.Time { return now }))
	return q, rec, dir
}

func draft(uri string) recordings.Draft {
	return recordings.Draft{URI: uri, Duration: 4, VocalizationID: 3, VocalizationName: "choro", ParticipantID: 9}
}

func TestSaveValidates(t *testing.T) {
	q, rec, dir := newQueue(t)
	ctx := context.Background()
	testsupport.WriteBytes(t, filepath.Join(dir, "tiny.wav"), 49)
	testsupport.WriteBytes(t, filepath.Join(dir, "edge.wav"), recordings.MinBlobSize)

	cases := []struct {
		name  string
		draft recordings.Draft
	}{
		{"no vocalization", recordings.Draft{URI: "edge.wav", ParticipantID: 9}},
		{"no participant", recordings.Draft{URI: "edge.wav", VocalizationID: 3}},
		{"missing file", draft("missing.wav")},
		{"too small", draft("tiny.wav")},
	}
	for _, tc := range cases {
		if _, err := q.Save(ctx, tc.draft); !apierr.IsKind(err, apierr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
	if rec.Count("pending_changed") != 0 {
		t.Fatal("rejected drafts must not signal")
	}

	saved, err := q.Save(ctx, draft("edge.wav"))
	if err != nil {
		t.Fatalf("Save at minimum size: %v", err)
	}
	if saved.ID == "" || saved.Status != recordings.StatusPending || saved.Timestamp != 1_700_000_000_000 {
		t.Fatalf("unexpected record %+v", saved)
	}
	events := rec.Events()
	if len(events) != 1 || !events[0].HasPending {
		t.Fatalf("expected one pending signal, got %+v", events)
	}
}

func TestMarkSentAndDiscardSignal(t *testing.T) {
	q, rec, dir := newQueue(t)
	ctx := context.Background()
	path := testsupport.WriteRecording(t, filepath.Join(dir, "a.wav"), 200)

	saved, err := q.Save(ctx, draft("a.wav"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := q.MarkSent(ctx, saved.ID); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if has, _ := q.HasPending(ctx); has {
		t.Fatal("sent recording is not pending")
	}
	events := rec.Events()
	if last := events[len(events)-1]; last.HasPending {
		t.Fatal("expected a no-pending signal after MarkSent")
	}

	if err := q.Discard(ctx, saved.ID); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected blob removed, stat err %v", err)
	}
	list, _ := q.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty queue, got %+v", list)
	}
	if err := q.Discard(ctx, saved.ID); !errors.Is(err, recordings.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLegacyRecordsGetIDs(t *testing.T) {
	store := kvstore.NewMemory()
	ctx := context.Background()
	_ = store.Set(ctx, recordings.Key, `[{"uri":"x.wav","timestamp":1,"duration":2,"vocalizationId":3,"vocalizationName":"a","participanteId":4,"status":"pending"}]`)
	q := recordings.NewQueue(store, recordings.NewFileBlobStore(t.TempDir()), nil)

	first, err := q.List(ctx)
	if err != nil || len(first) != 1 || first[0].ID == "" {
		t.Fatalf("List: %+v %v", first, err)
	}
	second, _ := q.List(ctx)
	if second[0].ID != first[0].ID {
		t.Fatal("assigned id must be stable")
	}
}

type fakeUploader struct {
	mu   sync.Mutex
	got  []audios.Upload
	fail map[int64]bool
}

func (f *fakeUploader) Upload(_ context.Context, up audios.Upload) (audios.Audio, error) {
	data, _ := io.ReadAll(up.Content)
	f.mu.Lock()
	defer f.mu.Unlock()
	up.Content = nil
	f.got = append(f.got, up)
	if f.fail[up.VocalizationID] || len(data) == 0 {
		return audios.Audio{}, apierr.New(apierr.KindServerRejected, "rejected")
	}
	return audios.Audio{ID: int64(len(f.got))}, nil
}

func TestUploadPendingReportsPerRecord(t *testing.T) {
	q, rec, dir := newQueue(t)
	ctx := context.Background()
	testsupport.WriteRecording(t, filepath.Join(dir, "ok.wav"), 100)
	testsupport.WriteRecording(t, filepath.Join(dir, "bad.wav"), 100)

	ok, _ := q.Save(ctx, recordings.Draft{URI: "ok.wav", VocalizationID: 1, ParticipantID: 9})
	bad, _ := q.Save(ctx, recordings.Draft{URI: "bad.wav", VocalizationID: 2, ParticipantID: 9})

	fake := &fakeUploader{fail: map[int64]bool{2: true}}
	summary, err := recordings.NewUploader(q, fake, rec).UploadPending(ctx)
	if err != nil {
		t.Fatalf("UploadPending: %v", err)
	}
	if len(summary.Sent) != 1 || summary.Sent[0].ID != ok.ID {
		t.Fatalf("unexpected sent %+v", summary.Sent)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].Recording.ID != bad.ID {
		t.Fatalf("unexpected failures %+v", summary.Failed)
	}
	pending, _ := q.Pending(ctx)
	if len(pending) != 1 || pending[0].ID != bad.ID {
		t.Fatalf("failed record must stay pending, got %+v", pending)
	}
	if rec.Count("upload_summary") != 1 {
		t.Fatalf("expected one summary notification, got %d", rec.Count("upload_summary"))
	}
	for _, up := range fake.got {
		if up.ParticipantID != 9 || up.FileName == "" {
			t.Fatalf("unexpected upload %+v", up)
		}
	}
}

func TestUploadPendingWithNothingPending(t *testing.T) {
	q, rec, _ := newQueue(t)
	summary, err := recordings.NewUploader(q, &fakeUploader{}, rec).UploadPending(context.Background())
	if err != nil || len(summary.Sent)+len(summary.Failed) != 0 {
		t.Fatalf("unexpected summary %+v %v", summary, err)
	}
	if rec.Count("upload_summary") != 0 {
		t.Fatal("empty pass must not notify")
	}
}
