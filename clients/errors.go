package clients

import "github.com/pkg/errors"

var ErrInvalidScope = errors.New("invalid scope")
