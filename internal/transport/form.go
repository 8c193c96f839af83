package transport

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"sort"
)

// File is a file part of a multipart form.
type File struct {
	Field   string
	Name    string
	Content []byte
}

// Form is a multipart/form-data body. It is encoded once per request so a
// replay sends identical bytes.
type Form struct {
	Fields map[string]string
	Files  []File
}

// Encode implements Payload.
func (f Form) Encode() (string, []byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, f.Fields[k]); err != nil {
			return "", nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}

	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return "", nil, fmt.Errorf("create form file %s: %w", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return "", nil, fmt.Errorf("write form file %s: %w", file.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("close form: %w", err)
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}
