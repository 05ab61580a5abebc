package chat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"yeetbank/pkg/api"
)

// ErrNotImage is returned when a staged file does not sniff as an image.
var ErrNotImage = errors.New("chat: file is not an image")

// Staged is a photo selected for the next message, held as a data URL
// preview until it is sent.
type Staged struct {
	Filename string
	DataURL  string
}

// StageFile reads an image from disk into a data URL.
func StageFile(path string) (*Staged, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	return StageBytes(filepath.Base(path), data)
}

func StageBytes(name string, data []byte) (*Staged, error) {
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, ErrNotImage
	}
	return &Staged{
		Filename: name,
		DataURL:  "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Photo converts the preview back into the binary upload.
func (s *Staged) Photo() (*api.Photo, error) {
	ct, data, err := ParseDataURL(s.DataURL)
	if err != nil {
		return nil, err
	}
	name := s.Filename
	if name == "" {
		name = "photo.jpg"
	}
	return &api.Photo{Filename: name, ContentType: ct, Data: data}, nil
}

// ParseDataURL decodes a base64 data URL of the form data:<type>;base64,<payload>.
func ParseDataURL(s string) (string, []byte, error) {
	head, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(head, "data:") {
		return "", nil, errors.New("chat: malformed data URL")
	}
	meta := strings.TrimPrefix(head, "data:")
	ct, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return "", nil, errors.New("chat: data URL is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("chat: decode data URL: %w", err)
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct, data, nil
}
