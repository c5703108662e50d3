package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"vocalize/internal/apierr"
)

// Request describes one API call. Body values that implement io.Reader are
// sent as-is with ContentType; any other non-nil Body is encoded as JSON.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	Header      http.Header
	ContentType string
}

// preparedRequest carries the encoded body so a retry can resend it.
type preparedRequest struct {
	Request
	payload     []byte
	contentType string
	retried     bool
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into out.
func (r *Response) Decode(out any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return apierr.Wrap(apierr.KindServerRejected, "unexpected response from server", err)
	}
	return nil
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.Method == "" {
		return nil, "", fmt.Errorf("method is empty")
	}
	switch body := req.Body.(type) {
	case nil:
		if req.ContentType != "" {
			return nil, req.ContentType, nil
		}
		return nil, contentTypeJSON, nil
	case io.Reader:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, "", fmt.Errorf("read body: %w", err)
		}
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return data, contentType, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		contentType := req.ContentType
		if contentType == "" {
			contentType = contentTypeJSON
		}
		return data, contentType, nil
	}
}

// FilePart is one file in a multipart form.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Content     io.Reader
}

// NewMultipartBody encodes fields and files as multipart/form-data and
// returns the body with its content type.
func NewMultipartBody(fields map[string]string, files ...FilePart) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.FileName))
		contentType := strings.TrimSpace(file.ContentType)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", file.Field, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("copy part %s: %w", file.Field, err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
