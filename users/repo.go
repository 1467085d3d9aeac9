package users

// UserRepo stores users. Implementations hand out copies, so callers may change a returned
// user and persist it with Upsert.
type UserRepo interface {
	Upsert(user *User) error
	Delete(id string) error
	GetByID(domainID, id string) (*User, error)
	GetByUsername(domainID, username string) (*User, error)
	GetByExternalID(domainID, source, externalID string) (*User, error)
	List(domainID string, offset, limit int) ([]*User, error)
}
