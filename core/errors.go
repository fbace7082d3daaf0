package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKeyEncoding       = errors.New("invalid key encoding")
	ErrInvalidPrincipalEncoding = errors.New("invalid principal encoding")
	ErrMappingDisabled          = errors.New("mapping is disabled")
	ErrNotFound                 = errors.New("not found")
	ErrChallengeExpired         = errors.New("challenge has expired")
	ErrVerificationFailed       = errors.New("signature verification failed")
	ErrConversionFailure        = errors.New("stored identifier failed conversion")

	// ErrMessageNotFound and ErrMappingNotFound both match ErrNotFound.
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrMappingNotFound = fmt.Errorf("mapping %w", ErrNotFound)

	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
)
