package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// partSeparator keeps ("a:b") and ("a", "b") apart.
const partSeparator = "\x1f"

// GenerateKey derives a fixed-length key from the parts identifying an update,
// e.g. GenerateKey("message", chatID, messageID).
func GenerateKey(parts ...any) string {
	strs := lo.Map(parts, func(part any, _ int) string {
		return fmt.Sprint(part)
	})

	sum := sha256.Sum256([]byte(strings.Join(strs, partSeparator)))
	return hex.EncodeToString(sum[:])
}
