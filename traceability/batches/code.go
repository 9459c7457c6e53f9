package batches

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	// CodeAlphabet excludes I and O so codes read unambiguously next to 1 and 0
	CodeAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	CodePrefix   = "B-"
	codeLength   = 8
)

var codePattern = regexp.MustCompile(`^B-[0-9A-HJ-NP-Z]{8}$`)

// GenerateCode returns a new random batch code such as B-7K2M9QXA
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = CodeAlphabet[n.Int64()]
	}
	return CodePrefix + string(buf), nil
}

// IsGeneratedCode reports whether code has the generated B-XXXXXXXX shape
func IsGeneratedCode(code string) bool {
	return codePattern.MatchString(code)
}
