package grant_test

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/jrsteele09/go-grant-server/grant"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/stretchr/testify/require"
)

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestValidatePKCE(t *testing.T) {
	verifier := strings.Repeat("a", 43)
	tests := []struct {
		name      string
		challenge string
		method    string
		verifier  string
		wantErr   bool
	}{
		{name: "no challenge skips pkce", challenge: "", verifier: ""},
		{name: "s256 match", challenge: s256(verifier), method: "S256", verifier: verifier},
		{name: "s256 mismatch", challenge: s256(verifier), method: "S256", verifier: strings.Repeat("b", 43), wantErr: true},
		{name: "plain match", challenge: verifier, method: "plain", verifier: verifier},
		{name: "empty method is plain", challenge: verifier, method: "", verifier: verifier},
		{name: "plain mismatch", challenge: verifier, method: "plain", verifier: strings.Repeat("c", 43), wantErr: true},
		{name: "missing verifier", challenge: verifier, method: "plain", verifier: "", wantErr: true},
		{name: "verifier too short", challenge: strings.Repeat("a", 42), method: "plain", verifier: strings.Repeat("a", 42), wantErr: true},
		{name: "verifier too long", challenge: strings.Repeat("a", 129), method: "plain", verifier: strings.Repeat("a", 129), wantErr: true},
		{name: "max length", challenge: strings.Repeat("a", 128), method: "plain", verifier: strings.Repeat("a", 128)},
		{name: "invalid characters", challenge: strings.Repeat("a", 42) + "!", method: "plain", verifier: strings.Repeat("a", 42) + "!", wantErr: true},
		{name: "unknown method", challenge: verifier, method: "S512", verifier: verifier, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := grant.ValidatePKCE(tt.challenge, tt.method, tt.verifier)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			requireKind(t, err, oauthmodel.KindInvalidGrant)
			require.Contains(t, err.Error(), "code_verifier")
		})
	}
}
