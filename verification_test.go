package contacts_test

import (
	"testing"

	contacts "github.com/goliatone/go-contacts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewVerificationToken(t *testing.T) {
	first := contacts.NewVerificationToken()
	second := contacts.NewVerificationToken()

	assert.NotEqual(t, first, second)

	_, err := uuid.Parse(first)
	assert.NoError(t, err, "token should be URL safe")
}

func TestVerificationLink(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		token   string
		want    string
	}{
		{
			name:    "plain base URL",
			baseURL: "http://localhost:3000",
			token:   "tok-123",
			want:    "http://localhost:3000/api/users/verify/tok-123",
		},
		{
			name:    "trailing slash is not doubled",
			baseURL: "https://contacts.example.com/",
			token:   "tok-123",
			want:    "https://contacts.example.com/api/users/verify/tok-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contacts.VerificationLink(tt.baseURL, tt.token))
		})
	}
}
