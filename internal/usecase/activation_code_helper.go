package usecase

import (
	"crypto/rand"
	"io"
	"strings"
)

const (
	// no O/0, I/1 or l
	activationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	activationGroups   = 3
	activationGroupLen = 4
)

// activationCodes draws XXXX-XXXX-XXXX codes from a byte source. Each call
// consumes fresh bytes, so a retry after a uniqueness collision gets a new code.
type activationCodes struct {
	src io.Reader
}

func newActivationCodes(src io.Reader) *activationCodes {
	if src == nil {
		src = rand.Reader
	}
	return &activationCodes{src: src}
}

// Next returns one code. len(activationAlphabet) divides 256, so the byte
// mapping is unbiased.
func (a *activationCodes) Next() (string, error) {
	buf := make([]byte, activationGroups*activationGroupLen)
	if _, err := io.ReadFull(a.src, buf); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(buf) + activationGroups - 1)
	for i, b := range buf {
		if i > 0 && i%activationGroupLen == 0 {
			sb.WriteByte('-')
		}
		sb.WriteByte(activationAlphabet[int(b)%len(activationAlphabet)])
	}
	return sb.String(), nil
}
