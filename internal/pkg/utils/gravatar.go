package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// GetGravatarURL returns the avatar shown next to the signed-in user in the
// navbar. Users without a Gravatar get the generic silhouette.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = 80
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Sprintf("https://www.gravatar.com/avatar/?s=%d&d=mp&f=y", size)
	}
	hash := md5.Sum([]byte(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
