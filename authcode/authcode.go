package authcode

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"time"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/internal/onetime"
	"github.com/pkg/errors"
)

// AuthorizationCode is issued by the authorization endpoint and redeemed once at the token endpoint.
type AuthorizationCode struct {
	Code           string    `json:"code"`
	DomainID       string    `json:"domainId"`
	ClientID       string    `json:"clientId"`
	Subject        string    `json:"subject"` // local user id
	Scopes         []string  `json:"scopes"`
	TransactionID  string    `json:"transactionId"`
	ContextVersion int       `json:"contextVersion"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`

	// RequestParameters are the parameters of the authorization request
	// (redirect_uri, code_challenge, code_challenge_method, resource, nonce ...).
	RequestParameters url.Values `json:"requestParameters"`
}

// Service issues and redeems authorization codes.
type Service struct {
	store   onetime.Store[AuthorizationCode]
	config  config.OAuthConfig
	nowTime func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(store onetime.Store[AuthorizationCode], cfg config.OAuthConfig, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] code store is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewService] config is required")
	}
	s := &Service{store: store, config: cfg, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Create generates a code for the given authorization and stores it.
func (s *Service) Create(ctx context.Context, code AuthorizationCode) (*AuthorizationCode, error) {
	bytes := make([]byte, s.config.GetCodeGenerationLength())
	if _, err := rand.Read(bytes); err != nil {
		return nil, errors.Wrap(err, "[Service.Create] rand.Read")
	}
	code.Code = base64.RawURLEncoding.EncodeToString(bytes)
	code.CreatedAt = s.nowTime()
	code.ExpiresAt = code.CreatedAt.Add(s.config.GetAuthCodeTimeout())

	if err := s.store.Put(ctx, code.Code, code, s.config.GetAuthCodeTimeout()); err != nil {
		return nil, errors.Wrap(err, "[Service.Create] store.Put")
	}
	return &code, nil
}

// Remove consumes the code. It returns nil when the code is unknown, already used, expired
// or was issued to another client; a code presented by the wrong client is burned all the same.
func (s *Service) Remove(ctx context.Context, code string, client *clients.Client) (*AuthorizationCode, error) {
	stored, ok, err := s.store.Take(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Remove] store.Take")
	}
	if !ok {
		return nil, nil
	}
	if stored.ClientID != client.ID || stored.DomainID != client.DomainID {
		return nil, nil
	}
	if s.nowTime().After(stored.ExpiresAt) {
		return nil, nil
	}
	return &stored, nil
}
