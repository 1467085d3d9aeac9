// Package subject derives the public "sub" of tokens and the internal subject ("gis")
// that lets a token be traced back to the identity provider user it was issued for.
package subject

import (
	"strings"

	"github.com/google/uuid"
)

// InternalSubClaim carries "<sourceId>|<externalUserId>" in tokens and additional information maps.
const InternalSubClaim = "gis"

const separator = "|"

// UserID is the triple a subject is generated from.
type UserID struct {
	ID         string
	Source     string
	ExternalID string
}

// Manager generates stable subjects. Users with a source and external id get a name based
// UUID so the subject survives re-creation of the local record.
type Manager struct {
	namespace uuid.UUID
}

func NewManager(namespace string) *Manager {
	return &Manager{
		namespace: uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace)),
	}
}

// GenerateSubFrom returns the public subject for the user.
func (m *Manager) GenerateSubFrom(id UserID) string {
	internal := m.GenerateInternalSubFrom(id)
	if internal == "" {
		return id.ID
	}
	return uuid.NewSHA1(m.namespace, []byte(internal)).String()
}

// GenerateInternalSubFrom returns "<source>|<externalId>", or "" when either part is missing.
func (m *Manager) GenerateInternalSubFrom(id UserID) string {
	if id.Source == "" || id.ExternalID == "" {
		return ""
	}
	return id.Source + separator + id.ExternalID
}

// ExtractUserID returns the external user id part of an internal subject.
// A value without separator is returned unchanged.
func (m *Manager) ExtractUserID(internalSub string) string {
	return ExtractUserID(internalSub)
}

// ExtractSourceID returns the source part of an internal subject, "" when there is none.
func (m *Manager) ExtractSourceID(internalSub string) string {
	return ExtractSourceID(internalSub)
}

func ExtractUserID(internalSub string) string {
	if _, after, ok := strings.Cut(internalSub, separator); ok {
		return after
	}
	return internalSub
}

func ExtractSourceID(internalSub string) string {
	if before, _, ok := strings.Cut(internalSub, separator); ok {
		return before
	}
	return ""
}
