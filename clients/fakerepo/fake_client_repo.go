package fakeclientrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-grant-server/clients"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[string]*clients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func key(domainID, clientID string) string {
	return domainID + "/" + clientID
}

func (r *FakeClientRepo) Upsert(clientData *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if clientData.ID == "" {
		clientData.ID = uuid.New().String()
	}
	r.clients[key(clientData.DomainID, clientData.ID)] = clientData
	return nil
}

func (r *FakeClientRepo) Delete(domainID, clientID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.clients, key(domainID, clientID))
	return nil
}

func (r *FakeClientRepo) Get(domainID, clientID string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[key(domainID, clientID)]
	if !ok {
		return nil, ierrors.ErrClientNotFound
	}
	return client, nil
}

func (r *FakeClientRepo) List(domainID string, offset, limit int) ([]*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*clients.Client, 0)
	for _, v := range r.clients {
		if v.DomainID == domainID {
			list = append(list, v)
		}
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := min(offset+limit, len(list))
	return list[offset:end], nil
}
