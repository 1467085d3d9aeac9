package config

import "github.com/knadh/koanf/v2"

// SystemConfig describes the domain and client created at startup so a fresh server can
// issue tokens without any provisioning.
type SystemConfig interface {
	GetSystemDomainID() string
	GetSystemDomainName() string
	GetSystemClientID() string
	GetSystemClientSecret() string
}

type System struct {
	k *koanf.Koanf
}

var _ SystemConfig = System{}

func (s System) GetSystemDomainID() string {
	return s.k.String("system.domain_id")
}

func (s System) GetSystemDomainName() string {
	return s.k.String("system.domain_name")
}

func (s System) GetSystemClientID() string {
	return s.k.String("system.client_id")
}

// GetSystemClientSecret is the plain secret of the system client. Empty generates one at startup.
func (s System) GetSystemClientSecret() string {
	return s.k.String("system.client_secret")
}
