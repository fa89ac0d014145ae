package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageText(t *testing.T) {
	msg, err := NewMessage(uuid.New(), uuid.New(), TypeText, json.RawMessage(`"hi"`), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, msg.Status)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestNewMessageMissingParty(t *testing.T) {
	_, err := NewMessage(uuid.Nil, uuid.New(), TypeText, json.RawMessage(`"hi"`), nil)
	assert.ErrorIs(t, err, ErrMissingParty)

	_, err = NewMessage(uuid.New(), uuid.Nil, TypeText, json.RawMessage(`"hi"`), nil)
	assert.ErrorIs(t, err, ErrMissingParty)
}

func TestValidateContentText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"valid", `"hello"`, nil},
		{"empty string", `""`, ErrInvalidContent},
		{"not a string", `{"text": "hi"}`, ErrInvalidContent},
		{"not json", `hello`, ErrInvalidContent},
		{"at limit", `"` + strings.Repeat("a", MaxTextLength) + `"`, nil},
		{"over limit", `"` + strings.Repeat("a", MaxTextLength+1) + `"`, ErrInvalidContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(TypeText, json.RawMessage(tt.content))
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateContentFile(t *testing.T) {
	valid := `{"filename":"a.bin","mime_type":"application/octet-stream","size":3,"iv":"AAAA","ciphertext":"AQID"}`
	assert.NoError(t, ValidateContent(TypeFile, json.RawMessage(valid)))

	tests := []struct {
		name    string
		content string
	}{
		{"plain string", `"not a file"`},
		{"missing filename", `{"mime_type":"text/plain","size":1,"iv":"AAAA","ciphertext":"AQID"}`},
		{"missing ciphertext", `{"filename":"a","mime_type":"text/plain","size":1,"iv":"AAAA"}`},
		{"negative size", `{"filename":"a","mime_type":"text/plain","size":-1,"iv":"AAAA","ciphertext":"AQID"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateContent(TypeFile, json.RawMessage(tt.content)), ErrInvalidContent)
		})
	}
}

func TestValidateContentSystem(t *testing.T) {
	assert.NoError(t, ValidateContent(TypeSystem, json.RawMessage(`{"kind":"key_rotation"}`)))
	assert.NoError(t, ValidateContent(TypeSystem, json.RawMessage(`"plain"`)))
	assert.ErrorIs(t, ValidateContent(TypeSystem, json.RawMessage(`null`)), ErrInvalidContent)
	assert.ErrorIs(t, ValidateContent(TypeSystem, nil), ErrInvalidContent)
}

func TestValidateContentUnknownType(t *testing.T) {
	assert.ErrorIs(t, ValidateContent(Type("video"), json.RawMessage(`"x"`)), ErrInvalidType)
}

func TestCanTransition(t *testing.T) {
	// Forward edges only, retracted absorbing.
	assert.True(t, CanTransition(StatusSent, StatusDelivered))
	assert.True(t, CanTransition(StatusSent, StatusRead))
	assert.True(t, CanTransition(StatusDelivered, StatusRead))
	assert.True(t, CanTransition(StatusSent, StatusRetracted))
	assert.True(t, CanTransition(StatusDelivered, StatusRetracted))
	assert.True(t, CanTransition(StatusRead, StatusRetracted))

	assert.False(t, CanTransition(StatusDelivered, StatusDelivered))
	assert.False(t, CanTransition(StatusRead, StatusDelivered))
	assert.False(t, CanTransition(StatusRead, StatusRead))
	assert.False(t, CanTransition(StatusRetracted, StatusRetracted))
	assert.False(t, CanTransition(StatusRetracted, StatusDelivered))
	assert.False(t, CanTransition(StatusRetracted, StatusRead))
	assert.False(t, CanTransition(StatusDelivered, StatusSent))
	assert.False(t, CanTransition(StatusRead, StatusSent))
}
