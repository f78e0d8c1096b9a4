package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// GenerateCode returns a fixed-width numeric one-time code. Digits are
// drawn one at a time from crypto/rand with rejection sampling so the
// distribution stays uniform
func GenerateCode(digits int) (string, error) {
	b := make([]byte, digits)

	for i := 0; i < digits; {
		var one [1]byte
		if _, err := rand.Read(one[:]); err != nil {
			return "", err
		}

		// 250 is the largest multiple of 10 below 256
		if one[0] >= 250 {
			continue
		}

		b[i] = '0' + one[0]%10
		i++
	}

	return string(b), nil
}

// HashCode returns the hex sha256 digest of a code. Only the digest is
// ever persisted
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyCode compares a plaintext code against a stored digest in
// constant time
func VerifyCode(code, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(code)), []byte(hash)) == 1
}
