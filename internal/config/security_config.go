package config

import "github.com/knadh/koanf/v2"

type SecurityConfig interface {
	GetSubjectNamespace() string
	GetSigningKeyID() string
	GetSigningKeyFile() string
}

type Security struct {
	k *koanf.Koanf
}

var _ SecurityConfig = Security{}

// GetSubjectNamespace seeds the name based UUIDs used as token subjects.
func (s Security) GetSubjectNamespace() string {
	return s.k.String("security.subject_namespace")
}

func (s Security) GetSigningKeyID() string {
	return s.k.String("security.signing_key_id")
}

// GetSigningKeyFile is a PEM encoded RSA private key. Empty generates a key at startup.
func (s Security) GetSigningKeyFile() string {
	return s.k.String("security.signing_key_file")
}
