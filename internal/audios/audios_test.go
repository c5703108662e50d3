package audios_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/audios"
	"vocalize/internal/kvstore"
	"vocalize/internal/vault"
)

func newService(t *testing.T, handler http.HandlerFunc) *audios.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v := vault.New(kvstore.NewMemory())
	if err := v.SetCredentials(context.Background(), vault.Credentials{AccessToken: "tok", RefreshToken: "r", UserID: "1", Role: "user"}); err != nil {
		t.Fatalf("SetCredentials: %v", err)
	}
	client, err := api.New(api.Config{BaseURL: srv.URL, APIKey: "k"}, v, api.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return audios.New(client, nil)
}

func TestUploadSendsMultipartForm(t *testing.T) {
	wav := bytes.Repeat([]byte{1}, 128)
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/audios" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("participante_id") != "9" || r.FormValue("vocalizacao_id") != "3" {
			t.Errorf("unexpected fields %v", r.MultipartForm.Value)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "rec.wav" || header.Header.Get("Content-Type") != audios.WAVContentType || !bytes.Equal(data, wav) {
			t.Errorf("unexpected file part %s %s %d", header.Filename, header.Header.Get("Content-Type"), len(data))
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 70, "participante_id": 9, "vocalizacao_id": 3})
	})

	got, err := svc.Upload(context.Background(), audios.Upload{FileName: "rec.wav", Content: bytes.NewReader(wav), ParticipantID: 9, VocalizationID: 3})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got.ID != 70 {
		t.Fatalf("unexpected audio %+v", got)
	}
}

func TestPlayURLShapes(t *testing.T) {
	bodies := map[string]string{
		"/audios/1/play": `{"url":"https://cdn/a.wav"}`,
		"/audios/2/play": `"https://cdn/b.wav"`,
		"/audios/3/play": `https://cdn/c.wav`,
		"/audios/4/play": `{}`,
	}
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, bodies[r.URL.Path])
	})
	ctx := context.Background()

	for id, want := range map[int64]string{1: "https://cdn/a.wav", 2: "https://cdn/b.wav", 3: "https://cdn/c.wav"} {
		got, err := svc.PlayURL(ctx, id)
		if err != nil || got != want {
			t.Fatalf("PlayURL(%d) = %q, %v; want %q", id, got, err, want)
		}
	}
	if _, err := svc.PlayURL(ctx, 4); !apierr.IsKind(err, apierr.KindServerRejected) {
		t.Fatalf("expected error for empty object, got %v", err)
	}
}

func TestCountByParticipant(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audios/participante/9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 1}, {"id": 2}})
	})
	n, err := svc.CountByParticipant(context.Background(), 9)
	if err != nil || n != 2 {
		t.Fatalf("CountByParticipant = %d, %v", n, err)
	}
}
