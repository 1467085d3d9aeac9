package domainrepofakes

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-grant-server/domains"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
)

var _ domains.Repo = (*FakeDomainRepo)(nil)

type FakeDomainRepo struct {
	domains map[string]*domains.Domain
	lock    sync.RWMutex
}

func NewFakeDomainRepo() *FakeDomainRepo {
	return &FakeDomainRepo{
		domains: make(map[string]*domains.Domain),
	}
}

func (dr *FakeDomainRepo) Upsert(domain *domains.Domain) error {
	dr.lock.Lock()
	defer dr.lock.Unlock()
	if domain.ID == "" {
		domain.ID = uuid.New().String()
	}
	dr.domains[domain.ID] = domain
	return nil
}

func (dr *FakeDomainRepo) Delete(domainID string) error {
	dr.lock.Lock()
	defer dr.lock.Unlock()
	delete(dr.domains, domainID)
	return nil
}

func (dr *FakeDomainRepo) Get(domainID string) (*domains.Domain, error) {
	dr.lock.RLock()
	defer dr.lock.RUnlock()
	domain, ok := dr.domains[domainID]
	if !ok {
		return nil, ierrors.ErrDomainNotFound
	}
	return domain, nil
}

func (dr *FakeDomainRepo) List(offset, limit int) ([]*domains.Domain, error) {
	dr.lock.RLock()
	defer dr.lock.RUnlock()

	list := make([]*domains.Domain, 0, len(dr.domains))
	for _, d := range dr.domains {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	if offset >= len(list) {
		return nil, nil
	}
	return list[offset:min(offset+limit, len(list))], nil
}
