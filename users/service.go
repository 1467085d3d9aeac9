package users

import (
	"context"
	"maps"
	"time"

	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/subject"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Service resolves resource owners for the grant strategies.
type Service struct {
	repo    UserRepo
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

func NewService(repo UserRepo, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	s := &Service{
		repo:    repo,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// LoadPreAuthenticatedUser loads a user that already authenticated, e.g. when a code was issued.
func (s *Service) LoadPreAuthenticatedUser(ctx context.Context, domainID, userID string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(domainID, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.LoadPreAuthenticatedUser] user %s", userID)
	}
	if user.Blocked {
		return nil, ierrors.ErrUserBlocked
	}
	return user, nil
}

// LoadPreAuthenticatedUserBySub loads a user from an internal subject. "<source>|<externalId>"
// is looked up by external identity, anything else by user id.
func (s *Service) LoadPreAuthenticatedUserBySub(ctx context.Context, domainID, internalSub string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := subject.ExtractSourceID(internalSub)
	if source == "" {
		return s.LoadPreAuthenticatedUser(ctx, domainID, internalSub)
	}
	user, err := s.repo.GetByExternalID(domainID, source, subject.ExtractUserID(internalSub))
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.LoadPreAuthenticatedUserBySub] sub %s", internalSub)
	}
	if user.Blocked {
		return nil, ierrors.ErrUserBlocked
	}
	return user, nil
}

// LoadUserFromProvider loads the local user linked to an external user of the given provider.
func (s *Service) LoadUserFromProvider(ctx context.Context, domainID, providerID string, external ExternalUser) (*User, error) {
	return s.LoadPreAuthenticatedUserBySub(ctx, domainID, providerID+"|"+external.ID)
}

// Authenticate checks username and password.
func (s *Service) Authenticate(ctx context.Context, domainID, username, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByUsername(domainID, username)
	if err != nil {
		return nil, ierrors.ErrInvalidCredentials
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ierrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, ierrors.ErrUserBlocked
	}
	user = user.Clone()
	user.LastLogin = s.nowTime()
	if err := s.repo.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Authenticate] repo.Upsert")
	}
	return user, nil
}

// Connect creates or updates the local record of an external user. With a source the
// user is linked by (source, external id); without one it is matched on username and
// keeps no external link. A silent connect leaves the last login untouched.
func (s *Service) Connect(ctx context.Context, domainID, source string, external ExternalUser, silent bool) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		user *User
		err  error
	)
	if source != "" {
		user, err = s.repo.GetByExternalID(domainID, source, external.ID)
	} else {
		if external.Username == "" {
			external.Username = external.ID
		}
		user, err = s.repo.GetByUsername(domainID, external.Username)
	}
	switch {
	case errors.Is(err, ierrors.ErrUserNotFound):
		user = &User{
			DomainID:  domainID,
			CreatedAt: s.nowTime(),
		}
		if source != "" {
			user.Source = source
			user.ExternalID = external.ID
		}
		log.Ctx(ctx).Debug().Str("source", source).Str("external_id", external.ID).Msg("creating user")
	case err != nil:
		return nil, errors.Wrap(err, "[Service.Connect] repo lookup")
	default:
		user = user.Clone()
	}
	if user.Blocked {
		return nil, ierrors.ErrUserBlocked
	}

	if external.Username != "" {
		user.Username = external.Username
	}
	if external.Email != "" {
		user.Email = external.Email
	}
	if external.FirstName != "" {
		user.FirstName = external.FirstName
	}
	if external.LastName != "" {
		user.LastName = external.LastName
	}
	if len(external.AdditionalInformation) > 0 {
		if user.AdditionalInformation == nil {
			user.AdditionalInformation = map[string]any{}
		}
		maps.Copy(user.AdditionalInformation, external.AdditionalInformation)
	}
	if !silent {
		user.LastLogin = s.nowTime()
	}
	if err := s.repo.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Connect] repo.Upsert")
	}
	return user, nil
}
