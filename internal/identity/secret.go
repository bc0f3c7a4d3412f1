package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/romashorodok/conferencing-platform/pkg/protocol"
)

const _SECRET_BYTES = 32

// newSecret returns the registration secret handed to the user and the part
// of it that gets hashed. The user id prefix lets login find the record
// without storing the secret itself.
func newSecret(userID protocol.UserID) (secret string, random string, err error) {
	buf := make([]byte, _SECRET_BYTES)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("unable read random secret. Err: %w", err)
	}
	random = base64.RawURLEncoding.EncodeToString(buf)
	return userID + "." + random, random, nil
}

func parseSecret(secret string) (userID protocol.UserID, random string, ok bool) {
	userID, random, ok = strings.Cut(secret, ".")
	if !ok || userID == "" || random == "" {
		return "", "", false
	}
	return userID, random, true
}
