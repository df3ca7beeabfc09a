package gateway

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"adminpanel.org/internal/model"
)

// multipartBody encodes text fields first, then files, as the backend's form
// parser expects.
func multipartBody(m model.Multipart) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range m.FormFields() {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("gateway: write field %s: %w", f.Name, err)
		}
	}
	for _, f := range m.Files() {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("gateway: create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("gateway: write part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("gateway: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
