package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessagePriority(t *testing.T) {
	cases := []struct {
		name     string
		payload  map[string]any
		keys     []string
		expected string
	}{
		{"message wins", map[string]any{"message": "m", "detail": "d", "error": "e"}, nil, "m"},
		{"detail next", map[string]any{"detail": "d", "error": "e"}, nil, "d"},
		{"error last", map[string]any{"error": "e"}, nil, "e"},
		{"blank skipped", map[string]any{"message": "  ", "detail": "d"}, nil, "d"},
		{"field list", map[string]any{"email": []any{"already taken"}}, nil, "already taken"},
		{"fallback", map[string]any{"a": 1, "b": 2}, nil, "fallback"},
		{"nil payload", nil, nil, "fallback"},
		{"transfer order", map[string]any{"message": "m", "error": "e"}, []string{"error", "message"}, "e"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ErrorMessage(tc.payload, "fallback", tc.keys...))
		})
	}
}

func TestTransferMessage(t *testing.T) {
	assert.Equal(t, "Insufficient balance", TransferMessage(map[string]any{"message": "x", "error": "Insufficient balance"}, "f"))
	assert.Equal(t, "x", TransferMessage(map[string]any{"message": "x"}, "f"))
}

func TestTypedErrorsUnwrap(t *testing.T) {
	he := &HTTPError{Status: 400, Payload: map[string]any{"error": "nope"}}
	err := fmt.Errorf("submit: %w", transferError(he, "fallback"))

	var te *TransferError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "nope", te.Message)
	assert.Equal(t, map[string]any{"error": "nope"}, PayloadOf(err))

	assert.ErrorIs(t, transferError(ErrSessionExpired, "x"), ErrSessionExpired)

	ae := authError(&HTTPError{Status: 401, Payload: map[string]any{"detail": "bad creds"}}, "Login failed")
	assert.Equal(t, "bad creds", ae.Error())
}

func TestFormEncode(t *testing.T) {
	f := &form{
		fields: [][2]string{{"content", "Photo"}, {"message_type", MessageImage}},
		files:  []formFile{{field: "image", photo: Photo{Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpg")}}},
	}
	body, ctype, err := f.encode()
	assert.NoError(t, err)
	assert.Contains(t, ctype, "multipart/form-data; boundary=")
	assert.Contains(t, string(body), `name="content"`)
	assert.Contains(t, string(body), `filename="photo.jpg"`)
	assert.Contains(t, string(body), "Content-Type: image/jpeg")
}
