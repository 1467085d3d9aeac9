package config

import (
	"strings"

	"github.com/knadh/koanf/v2"
)

type Cors struct {
	k *koanf.Koanf
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range c.k.Strings("cors.allowed_origins") {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins[part] = nullValue{}
			}
		}
	}
	return origins
}

func (c Cors) GetAllowedMethods() string {
	return c.k.String("cors.allowed_methods")
}

func (c Cors) GetAllowedHeaders() string {
	return c.k.String("cors.allowed_headers")
}
