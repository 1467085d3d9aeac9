package clients

type Repo interface {
	Upsert(clientData *Client) error
	Delete(domainID, clientID string) error
	Get(domainID, clientID string) (*Client, error)
	List(domainID string, offset, limit int) ([]*Client, error)
}
