package ciba

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-grant-server/internal/config"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// slowDownIncrement is added to the poll interval of a client that polls too fast.
const slowDownIncrement = 5 * time.Second

type Service struct {
	repo    Repo
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

func NewService(repo Repo, cfg config.OAuthConfig, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] repo is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewService] config is required")
	}
	s := &Service{repo: repo, config: cfg, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Create registers a new ONGOING request for the user.
func (s *Service) Create(ctx context.Context, domainID, clientID, userID string, scopes []string) (*AuthRequest, error) {
	now := s.nowTime()
	req := &AuthRequest{
		ID:           uuid.NewString(),
		DomainID:     domainID,
		ClientID:     clientID,
		Subject:      userID,
		Scopes:       scopes,
		Status:       StatusOngoing,
		PollInterval: s.config.GetCibaPollInterval(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.config.GetCibaRequestExpiry()),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, errors.Wrap(err, "[Service.Create] repo.Create")
	}
	return req, nil
}

// Approve records the end user's consent.
func (s *Service) Approve(ctx context.Context, id string, acrValues []string) error {
	return s.complete(ctx, id, StatusSuccess, func(req *AuthRequest) {
		if len(acrValues) == 0 {
			return
		}
		if req.ExternalInformation == nil {
			req.ExternalInformation = map[string]any{}
		}
		req.ExternalInformation[ExternalInfoACRValues] = acrValues
	})
}

// Reject records the end user's refusal.
func (s *Service) Reject(ctx context.Context, id string) error {
	return s.complete(ctx, id, StatusRejected, nil)
}

func (s *Service) complete(ctx context.Context, id string, status Status, update func(*AuthRequest)) error {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "[Service.complete] request %s", id)
	}
	if req.Status != StatusOngoing {
		return errors.Errorf("[Service.complete] request %s is already %s", id, req.Status)
	}
	req.Status = status
	if update != nil {
		update(req)
	}
	if err := s.repo.Update(ctx, req); err != nil {
		return errors.Wrapf(err, "[Service.complete] request %s", id)
	}
	return nil
}

// Retrieve is called on every poll of the token endpoint. It returns the request once the
// user approved it and consumes it; every other state is reported as an oauthmodel error.
// A poll by any client other than the one that started the request leaves it untouched.
func (s *Service) Retrieve(ctx context.Context, domainID, id, clientID string) (*AuthRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if errors.Is(err, ierrors.ErrNotFound) || (err == nil && req.DomainID != domainID) {
		return nil, oauthmodel.AuthorizationRejected("The end-user denied the authorization request")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Retrieve] repo.Get")
	}
	if req.ClientID != clientID {
		return nil, oauthmodel.InvalidGrant("auth_req_id not found")
	}

	now := s.nowTime()
	if !now.Before(req.ExpiresAt) {
		if _, err := s.repo.Delete(ctx, id); err != nil {
			return nil, errors.Wrap(err, "[Service.Retrieve] repo.Delete")
		}
		return nil, oauthmodel.ExpiredToken("The auth_req_id has expired")
	}

	switch req.Status {
	case StatusOngoing:
		tooFast := !req.LastAccessAt.IsZero() && now.Sub(req.LastAccessAt) < req.PollInterval
		req.LastAccessAt = now
		if tooFast {
			req.PollInterval += slowDownIncrement
		}
		if err := s.repo.Update(ctx, req); err != nil {
			return nil, errors.Wrap(err, "[Service.Retrieve] repo.Update")
		}
		if tooFast {
			log.Ctx(ctx).Debug().Str("auth_req_id", id).Dur("interval", req.PollInterval).Msg("client polling too fast")
			return nil, oauthmodel.SlowDown("The client is polling too quickly")
		}
		return nil, oauthmodel.AuthorizationPending("The end-user authorization is pending")
	case StatusRejected:
		if _, err := s.repo.Delete(ctx, id); err != nil {
			return nil, errors.Wrap(err, "[Service.Retrieve] repo.Delete")
		}
		return nil, oauthmodel.AuthorizationRejected("The end-user denied the authorization request")
	case StatusSuccess:
		deleted, err := s.repo.Delete(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "[Service.Retrieve] repo.Delete")
		}
		if !deleted {
			// a concurrent poll consumed it first
			return nil, oauthmodel.AuthorizationRejected("The end-user denied the authorization request")
		}
		return req, nil
	default:
		return nil, errors.Errorf("[Service.Retrieve] unknown status %q", req.Status)
	}
}
