package contacts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewVerificationToken produces a unique, unguessable, URL-safe one-time
// token for email confirmation. UUIDv4 gives 122 random bits; collisions
// are negligible at any realistic user-base scale.
func NewVerificationToken() string {
	return uuid.NewString()
}

// VerificationLink builds the absolute confirmation URL mailed to the user
func VerificationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/api/users/verify/%s", strings.TrimRight(baseURL, "/"), token)
}
