package sources

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// notPlaceholder reports whether a response differs from the provider's
// "no cover available" image. Without a configured hash every successful
// response is accepted.
func notPlaceholder(resp *Response, placeholderHash string) bool {
	if !statusOK(resp) {
		return false
	}
	if placeholderHash == "" {
		return true
	}
	sum := sha256.Sum256(resp.Body)
	return !strings.EqualFold(hex.EncodeToString(sum[:]), placeholderHash)
}
