package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Users maps user names to passwords. A password is either a bcrypt hash
// or plain text.
type Users map[string]string

// ParseUsers reads "name:password,name2:password2". Blank entries are
// skipped; an entry without a colon is an error.
func ParseUsers(s string) (Users, error) {
	users := Users{}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, password, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid user entry %q, want name:password", entry)
		}
		users[name] = password
	}
	return users, nil
}

// Authenticate returns the user id for valid credentials.
func (u Users) Authenticate(username, password string) (string, bool) {
	stored, ok := u[username]
	if !ok {
		return "", false
	}
	if !CheckPassword(stored, password) {
		return "", false
	}
	return username, true
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// CheckPassword compares password against stored.
func CheckPassword(stored, password string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
