package grant

import (
	"github.com/jrsteele09/go-grant-server/extgrant"
	"github.com/pkg/errors"
)

// Collaborators are the stores and services the strategies depend on.
type Collaborators struct {
	Codes         CodeStore
	Flows         AuthFlowContextStore
	RefreshTokens RefreshTokenStore
	Users         UserGateway
	Ciba          CibaRequestStore
	Tickets       TicketStore
	Resources     ResourceGateway
	Rules         RulesEngine
	Decoder       TokenDecoder
	Subjects      SubjectManager
	Exchanger     TokenExchanger
}

// ExtensionGrantBinding pairs a configured extension grant with its provider.
type ExtensionGrantBinding struct {
	Grant    extgrant.ExtensionGrant
	Provider extgrant.Provider
	// Legacy grants never link created users to an external identity.
	Legacy bool
}

// NewDefaultDispatcher registers every built-in strategy plus one strategy per extension
// grant.
func NewDefaultDispatcher(c Collaborators, extensions []ExtensionGrantBinding, options ...DispatcherOption) (*Dispatcher, error) {
	authCode, err := NewAuthorizationCodeStrategy(c.Codes, c.Flows, c.Users)
	if err != nil {
		return nil, err
	}
	refreshToken, err := NewRefreshTokenStrategy(c.RefreshTokens, c.Users)
	if err != nil {
		return nil, err
	}
	password, err := NewPasswordStrategy(c.Users)
	if err != nil {
		return nil, err
	}
	cibaStrategy, err := NewCibaStrategy(c.Ciba, c.Users)
	if err != nil {
		return nil, err
	}
	exchange, err := NewTokenExchangeStrategy(c.Exchanger, c.Users)
	if err != nil {
		return nil, err
	}
	umaStrategy, err := NewUmaStrategy(c.Tickets, c.Resources, c.Rules, c.Decoder, c.Users, c.Subjects)
	if err != nil {
		return nil, err
	}

	d := NewDispatcher(options...)
	d.Register(authCode, refreshToken, ClientCredentialsStrategy{}, password, cibaStrategy, exchange, umaStrategy)

	grants := make([]extgrant.ExtensionGrant, 0, len(extensions))
	for _, e := range extensions {
		grants = append(grants, e.Grant)
	}
	oldest := OldestExtensionGrantIDs(grants)
	for _, e := range extensions {
		var opts []ExtensionGrantOption
		if !e.Legacy {
			opts = append(opts, WithSubjectManager(c.Subjects))
		}
		s, err := NewExtensionGrantStrategy(e.Grant, e.Provider, c.Users, IsOldest(oldest, e.Grant), opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "[NewDefaultDispatcher] extension grant %s", e.Grant.ID)
		}
		d.Register(s)
	}
	return d, nil
}
