package secrets

import "errors"

var (
	ErrMasterKeyEmpty  = errors.New("encryption master key cannot be empty")
	ErrSecretNotFound  = errors.New("secret not found")
	ErrSecretNameTaken = errors.New("secret name already in use for this environment")
	ErrInvalidName     = errors.New("secret name must be 3-100 alphanumeric, dot, underscore or dash characters")
)
