package oauthmodel

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines which strategy validates the request and what evidence it produces.
type GrantType = string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, redirect_uri, code_verifier (if PKCE)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, optional narrowed scope
	RefreshTokenGrant GrantType = "refresh_token"

	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Never carries a resource owner and never issues a refresh token.
	ClientCredentialsGrant GrantType = "client_credentials"

	// PasswordGrant authenticates the resource owner with username/password.
	PasswordGrant GrantType = "password"

	// CibaGrant polls for the outcome of a backchannel authentication request.
	// Token request includes: auth_req_id
	CibaGrant GrantType = "urn:openid:params:grant-type:ciba"

	// TokenExchangeGrant swaps a subject token (and optional actor token) for a new token (RFC 8693).
	TokenExchangeGrant GrantType = "urn:ietf:params:oauth:grant-type:token-exchange"

	// UmaGrant exchanges a permission ticket for a requesting party token (UMA 2.0).
	UmaGrant GrantType = "urn:ietf:params:oauth:grant-type:uma-ticket"

	// JWTBearerGrant is the RFC 7523 assertion grant, served by an extension grant.
	JWTBearerGrant GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// Token endpoint parameter names.
const (
	ParamGrantType          = "grant_type"
	ParamClientID           = "client_id"
	ParamClientSecret       = "client_secret"
	ParamScope              = "scope"
	ParamResource           = "resource"
	ParamCode               = "code"
	ParamRedirectURI        = "redirect_uri"
	ParamCodeVerifier       = "code_verifier"
	ParamCodeChallenge      = "code_challenge"
	ParamCodeChallengeMeth  = "code_challenge_method"
	ParamNonce              = "nonce"
	ParamRefreshToken       = "refresh_token"
	ParamUsername           = "username"
	ParamPassword           = "password"
	ParamAuthReqID          = "auth_req_id"
	ParamAssertion          = "assertion"
	ParamTicket             = "ticket"
	ParamClaimToken         = "claim_token"
	ParamClaimTokenFormat   = "claim_token_format"
	ParamRPT                = "rpt"
	ParamSubjectToken       = "subject_token"
	ParamSubjectTokenType   = "subject_token_type"
	ParamActorToken         = "actor_token"
	ParamActorTokenType     = "actor_token_type"
	ParamRequestedTokenType = "requested_token_type"
	ParamAudience           = "audience"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256: code_challenge = BASE64URL(SHA256(code_verifier))
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain: code_challenge = code_verifier
	CodeMethodTypePlain CodeMethodType = "plain"
)

// Token type identifiers (RFC 8693 section 3).
const (
	TokenTypeAccessToken  = "urn:ietf:params:oauth:token-type:access_token"
	TokenTypeRefreshToken = "urn:ietf:params:oauth:token-type:refresh_token"
	TokenTypeIDToken      = "urn:ietf:params:oauth:token-type:id_token"
	TokenTypeJWT          = "urn:ietf:params:oauth:token-type:jwt"
)

// ClaimTokenFormatIDToken is the only claim_token_format accepted at the UMA grant.
const ClaimTokenFormatIDToken = "http://openid.net/specs/openid-connect-core-1_0.html#IDToken"

// ScopeOpenID triggers ID token issuance.
const ScopeOpenID = "openid"
