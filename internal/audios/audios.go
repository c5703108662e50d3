// Package audios wraps the remote audio endpoints: multipart upload, lookup,
// playback URLs and edits. Nothing here is cached.
package audios

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/logging"
)

const (
	basePath = "/audios"

	// WAVContentType is the content type of every uploaded file.
	WAVContentType = "audio/wav"
)

// Audio is a stored recording on the server.
type Audio struct {
	ID             int64 `json:"id"`
	ParticipantID  int64 `json:"participante_id"`
	VocalizationID int64 `json:"vocalizacao_id"`
}

// Upload describes one file to send.
type Upload struct {
	FileName       string
	Content        io.Reader
	ParticipantID  int64
	VocalizationID int64
}

// Service calls the audio endpoints.
type Service struct {
	client *api.Client
	logger *slog.Logger
}

// New builds a Service on the authenticated client.
func New(client *api.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logging.NewComponentLogger(logger, "audios")}
}

// Upload sends a WAV file linked to a participant and a vocalization.
func (s *Service) Upload(ctx context.Context, up Upload) (Audio, error) {
	if up.Content == nil {
		return Audio{}, apierr.New(apierr.KindValidation, "arquivo de áudio ausente")
	}
	name := strings.TrimSpace(up.FileName)
	if name == "" {
		name = "audio.wav"
	}
	body, contentType, err := api.NewMultipartBody(map[string]string{
		"participante_id": strconv.FormatInt(up.ParticipantID, 10),
		"vocalizacao_id":  strconv.FormatInt(up.VocalizationID, 10),
	}, api.FilePart{Field: "file", FileName: name, ContentType: WAVContentType, Content: up.Content})
	if err != nil {
		return Audio{}, fmt.Errorf("build upload: %w", err)
	}

	var out Audio
	err = s.client.Do(ctx, api.Request{
		Method:      http.MethodPost,
		Path:        basePath,
		Body:        body,
		ContentType: contentType,
	}, &out)
	if err != nil {
		return Audio{}, err
	}
	s.logger.Info("audio uploaded",
		logging.String(logging.FieldEventType, "audio_uploaded"),
		logging.Int64("audio_id", out.ID),
		logging.Int64("participant_id", up.ParticipantID),
		logging.Int64("vocalization_id", up.VocalizationID),
	)
	return out, nil
}

// List returns every audio visible to the session.
func (s *Service) List(ctx context.Context) ([]Audio, error) {
	return s.list(ctx, basePath)
}

// Get returns one audio.
func (s *Service) Get(ctx context.Context, id int64) (Audio, error) {
	var out Audio
	if err := s.client.Get(ctx, fmt.Sprintf("%s/%d", basePath, id), nil, &out); err != nil {
		return Audio{}, err
	}
	return out, nil
}

// Update patches an audio and returns the stored result.
func (s *Service) Update(ctx context.Context, id int64, fields map[string]any) (Audio, error) {
	var out Audio
	if err := s.client.Patch(ctx, fmt.Sprintf("%s/%d", basePath, id), fields, &out); err != nil {
		return Audio{}, err
	}
	return out, nil
}

// Delete removes an audio.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("%s/%d", basePath, id))
}

func (s *Service) ListByParticipant(ctx context.Context, participantID int64) ([]Audio, error) {
	return s.list(ctx, fmt.Sprintf("%s/participante/%d", basePath, participantID))
}

func (s *Service) ListByVocalization(ctx context.Context, vocalizationID int64) ([]Audio, error) {
	return s.list(ctx, fmt.Sprintf("%s/vocalizacao/%d", basePath, vocalizationID))
}

// CountByParticipant returns how many audios a participant has.
func (s *Service) CountByParticipant(ctx context.Context, participantID int64) (int, error) {
	list, err := s.ListByParticipant(ctx, participantID)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// PlayURL returns a playable URL. The server answers either {"url": ...} or
// the bare URL.
func (s *Service) PlayURL(ctx context.Context, id int64) (string, error) {
	resp, err := s.client.Send(ctx, api.Request{Method: http.MethodGet, Path: fmt.Sprintf("%s/%d/play", basePath, id)})
	if err != nil {
		return "", err
	}
	return parsePlayURL(resp.Body)
}

func parsePlayURL(body []byte) (string, error) {
	var wrapped struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.URL != "" {
		return wrapped.URL, nil
	}
	var bare string
	if err := json.Unmarshal(body, &bare); err == nil && bare != "" {
		return bare, nil
	}
	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "{") {
		return "", apierr.New(apierr.KindServerRejected, "resposta sem URL de reprodução")
	}
	return text, nil
}

func (s *Service) list(ctx context.Context, path string) ([]Audio, error) {
	var out []Audio
	if err := s.client.Get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Audio{}
	}
	return out, nil
}
