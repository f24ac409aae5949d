package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	completionIDPrefix = "chatcmpl-"
	responseIDPrefix   = "resp_"
	itemIDPrefix       = "item_"
)

var responseIDPattern = regexp.MustCompile(`^resp_[a-zA-Z0-9]{24}$`)

// NewCompletionID generates a chat completion ID with the "chatcmpl-" prefix
// followed by 24 cryptographically random alphanumeric characters. One ID is
// shared by every chunk of a stream.
func NewCompletionID() string {
	return completionIDPrefix + randomAlphanumeric(idLength)
}

// NewResponseID generates a responses-dialect ID with the "resp_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewResponseID() string {
	return responseIDPrefix + randomAlphanumeric(idLength)
}

// NewItemID generates an output item ID with the "item_" prefix followed by
// 24 cryptographically random alphanumeric characters.
func NewItemID() string {
	return itemIDPrefix + randomAlphanumeric(idLength)
}

// ValidateResponseID checks whether the given string is a valid response ID
// (matches "resp_" + 24 alphanumeric characters).
func ValidateResponseID(id string) bool {
	return responseIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
