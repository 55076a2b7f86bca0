// Package redemptions issues one-time redemption codes and guarantees
// at-most-once consumption.
package redemptions

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
)

// codePrefix marks redemption codes so they are recognizable at the point of
// sale.
const codePrefix = "RDM-"

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateCode returns a new random redemption code. Uniqueness is enforced
// by the database; callers retry on collision.
func GenerateCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate redemption code: %w", err)
	}
	return codePrefix + codeEncoding.EncodeToString(buf), nil
}
