package jwt

import (
	"context"

	jwtlib "github.com/golang-jwt/jwt/v5"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/token/keys"
	"github.com/pkg/errors"
)

// RevokedChecker is an interface for checking if a token has been revoked
type RevokedChecker interface {
	IsRevoked(jti string) bool
}

// Verifier decodes tokens minted by this server and checks signature, expiry and revocation.
type Verifier struct {
	signer         keys.Signer
	revokedChecker RevokedChecker
}

// NewVerifier creates a new JWT verifier. revokedChecker may be nil.
func NewVerifier(signer keys.Signer, revokedChecker RevokedChecker) (*Verifier, error) {
	if signer == nil {
		return nil, errors.New("[NewVerifier] signer is required")
	}
	return &Verifier{
		signer:         signer,
		revokedChecker: revokedChecker,
	}, nil
}

// DecodeAndVerify returns the claims of raw. Expired tokens fail with ErrTokenExpired, every
// other failure with ErrInvalidToken. A non empty use must match the token_use claim.
func (v *Verifier) DecodeAndVerify(ctx context.Context, raw string, use TokenUse) (Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{v.signer.GetSigningMethod().Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	token, err := parser.ParseWithClaims(raw, jwtlib.MapClaims{}, v.signer.GetVerificationKey)
	if errors.Is(err, jwtlib.ErrTokenExpired) {
		return nil, errors.Wrap(ierrors.ErrTokenExpired, "[Verifier.DecodeAndVerify]")
	}
	if err != nil || !token.Valid {
		return nil, errors.Wrapf(ierrors.ErrInvalidToken, "[Verifier.DecodeAndVerify] %v", err)
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(ierrors.ErrInvalidToken, "[Verifier.DecodeAndVerify] error extracting claims from token")
	}
	claims := Claims(mapClaims)

	if use != UseAny && claims.str(ClaimTokenUse) != string(use) {
		return nil, errors.Wrapf(ierrors.ErrInvalidToken, "[Verifier.DecodeAndVerify] expected %s", use)
	}
	if jti := claims.ID(); jti != "" && v.revokedChecker != nil && v.revokedChecker.IsRevoked(jti) {
		return nil, errors.Wrap(ierrors.ErrInvalidToken, "[Verifier.DecodeAndVerify] token revoked")
	}
	return claims, nil
}
