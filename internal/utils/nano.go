package utils

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	NanoidSize     = 24
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// no 0/O or 1/I so codes can be read over the phone
	requestCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	RequestCodePrefix   = "MT"
	RequestCodeSize     = 6
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// RequestCode returns a human-readable code such as MT-7KQ2ZD.
func RequestCode() string {
	return RequestCodePrefix + "-" + gonanoid.MustGenerate(requestCodeAlphabet, RequestCodeSize)
}

func IsRequestCode(s string) bool {
	prefix := RequestCodePrefix + "-"
	if !strings.HasPrefix(s, prefix) || len(s) != len(prefix)+RequestCodeSize {
		return false
	}

	for _, r := range s[len(prefix):] {
		if !strings.ContainsRune(requestCodeAlphabet, r) {
			return false
		}
	}
	return true
}
