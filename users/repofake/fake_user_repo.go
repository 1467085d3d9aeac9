package fakeuserrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	usernameIDs map[string]string // domain/username to user id
	externalIDs map[string]string // domain/source|externalId to user id
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		usernameIDs: make(map[string]string),
		externalIDs: make(map[string]string),
	}
}

func usernameKey(domainID, username string) string {
	return domainID + "/" + username
}

func externalKey(domainID, source, externalID string) string {
	return domainID + "/" + source + "|" + externalID
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user.Clone()
	if user.Username != "" {
		ur.usernameIDs[usernameKey(user.DomainID, user.Username)] = user.ID
	}
	if user.Source != "" && user.ExternalID != "" {
		ur.externalIDs[externalKey(user.DomainID, user.Source, user.ExternalID)] = user.ID
	}
	return nil
}

func (ur *FakeUserRepo) Delete(id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return ierrors.ErrUserNotFound
	}
	delete(ur.usernameIDs, usernameKey(user.DomainID, user.Username))
	delete(ur.externalIDs, externalKey(user.DomainID, user.Source, user.ExternalID))
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByID(domainID, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok || user.DomainID != domainID {
		return nil, ierrors.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (ur *FakeUserRepo) GetByUsername(domainID, username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIDs[usernameKey(domainID, username)]
	if !ok {
		return nil, ierrors.ErrUserNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *FakeUserRepo) GetByExternalID(domainID, source, externalID string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.externalIDs[externalKey(domainID, source, externalID)]
	if !ok {
		return nil, ierrors.ErrUserNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *FakeUserRepo) List(domainID string, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0)
	for _, v := range ur.users {
		if v.DomainID == domainID {
			userList = append(userList, v.Clone())
		}
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})

	if offset >= len(userList) {
		return nil, nil
	}
	return userList[offset:min(offset+limit, len(userList))], nil
}
