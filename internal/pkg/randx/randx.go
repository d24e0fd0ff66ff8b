/*
Package randx provides functions for generating random identifiers.

Session identifiers are UUID v4 strings; media object keys combine a short Base62 prefix drawn
from crypto/rand with a UUID so uploads from different clients never collide.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// MediaPrefixLength is the length of the random directory prefix of a media key.
	MediaPrefixLength = 6
)

// SessionID generates a standard UUID v4 string identifying one mounted session state.
func SessionID() string {
	return uuid.New().String()
}

// Base62 returns a random Base62 string of the given length using crypto/rand.
func Base62(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MediaKey builds an object key "<prefix>/<uuid><ext>" for an uploaded file. ext must include
// the leading dot and is lower-cased.
func MediaKey(ext string) (string, error) {
	prefix, err := Base62(MediaPrefixLength)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), strings.ToLower(ext)), nil
}

// IsBase62 reports whether s is non-empty and consists only of Base62 characters.
func IsBase62(s string) bool {
	if s == "" {
		return false
	}

	for _, char := range s {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
