package config

import "github.com/knadh/koanf/v2"

const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Store struct {
	k *koanf.Koanf
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return s.k.String("store.backend")
}

func (s Store) GetRedisAddr() string {
	return s.k.String("store.redis.addr")
}

func (s Store) GetRedisPassword() string {
	return s.k.String("store.redis.password")
}

func (s Store) GetRedisDB() int {
	return s.k.Int("store.redis.db")
}
