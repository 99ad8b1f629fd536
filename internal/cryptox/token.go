package cryptox

import (
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/sha3"
)

// tokenSize is the number of hash bytes kept in a discovery token.
const tokenSize = 10

const tokenDomain = "courier-discovery-v1"

// DiscoveryToken hashes a contact identifier into the opaque token sent to
// the directory instead of the identifier itself. Identifiers are trimmed
// before hashing so formatting noise does not split one number into two
// tokens.
func DiscoveryToken(identifier string) string {
	h := sha3.New256()
	h.Write([]byte(tokenDomain))
	h.Write([]byte(strings.TrimSpace(identifier)))
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:tokenSize])
}
