package domains

type Repo interface {
	Upsert(domain *Domain) error
	Delete(domainID string) error
	Get(domainID string) (*Domain, error)
	List(offset, limit int) ([]*Domain, error)
}
