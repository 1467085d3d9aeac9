package grant

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"regexp"

	"github.com/jrsteele09/go-grant-server/oauthmodel"
)

// verifierPattern is the RFC 7636 code_verifier grammar: 43 to 128 unreserved characters.
var verifierPattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

// ValidatePKCE checks the code_verifier against the challenge recorded with the code.
// No challenge means the code was issued without PKCE and nothing is checked.
func ValidatePKCE(challenge, method, verifier string) error {
	if challenge == "" {
		return nil
	}
	if verifier == "" {
		return oauthmodel.InvalidGrant("Missing parameter: code_verifier")
	}
	if !verifierPattern.MatchString(verifier) {
		return oauthmodel.InvalidGrant("Invalid parameter: code_verifier")
	}

	var computed string
	switch oauthmodel.CodeMethodType(method) {
	case oauthmodel.CodeMethodTypeS256:
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	case oauthmodel.CodeMethodTypePlain, "":
		computed = verifier
	default:
		return oauthmodel.InvalidGrant("Unsupported code_challenge_method for code_verifier: %s", method)
	}
	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return oauthmodel.InvalidGrant("Invalid code_verifier")
	}
	return nil
}
