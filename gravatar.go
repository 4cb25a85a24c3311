package contacts

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// GravatarURL derives a deterministic avatar URL from an email address.
// Pure function of the email, no network involved; gravatar's protocol is
// an md5 of the trimmed, lowercased address.
func GravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=retro", md5.Sum([]byte(normalized)))
}
