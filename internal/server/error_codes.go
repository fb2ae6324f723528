package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument   = 1000
	ErrCodeInvalidJSON       = 1001
	ErrCodeRequestTooLarge   = 1002
	ErrCodeInvalidQuery      = 1003
	ErrCodeInvalidID         = 1004
	ErrCodeMissingRequired   = 1009
	ErrCodeInvalidDuration   = 1010
	ErrCodeInvalidExtension  = 1011
	ErrCodeExtensionRejected = 1012

	// Domain state (2xxx)
	ErrCodeDocumentNotFound    = 2001
	ErrCodeContentNotFound     = 2002
	ErrCodeJobNotFound         = 2003
	ErrCodeFormatNotFound      = 2004
	ErrCodeRenditionNotFound   = 2005
	ErrCodeStaleVersion        = 2101
	ErrCodeConflict            = 2102
	ErrCodeConstraintFailure   = 2103
	ErrCodeConversionFailed    = 2201

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal             = 4001
	ErrCodeStoreFailure         = 4002
	ErrCodeRepositoryCorruption = 4003
	ErrCodeUnavailable          = 4004
	ErrCodeNotImplemented       = 4005
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeDocumentNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeRequestTooLarge
	case 415:
		return ErrCodeFormatNotFound
	case 422:
		return ErrCodeConversionFailed
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	case 503:
		return ErrCodeUnavailable
	default:
		return 0
	}
}
