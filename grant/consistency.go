package grant

import (
	"slices"

	"github.com/jrsteele09/go-grant-server/internal/utils"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
)

// NarrowScopes returns the scopes of a renewed grant. No requested scopes keeps the granted
// ones; otherwise the result is the part of the request that was originally granted, and a
// request sharing nothing with the grant is refused.
func NarrowScopes(requested, granted []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(granted), nil
	}
	narrowed := utils.Intersect(requested, granted)
	if len(narrowed) == 0 {
		return nil, oauthmodel.InvalidScope("Requested scopes were not granted: %s", oauthmodel.JoinScopes(requested))
	}
	return narrowed, nil
}

// ReconcileResources checks RFC 8707 resource indicators against the ones bound at
// issuance. No requested resources keeps the granted ones.
func ReconcileResources(requested, granted []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(granted), nil
	}
	for _, r := range requested {
		if !slices.Contains(granted, r) {
			return nil, oauthmodel.InvalidTarget("The resource %s was not part of the authorization", r)
		}
	}
	return slices.Clone(requested), nil
}
