package garden

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	TextCodeUnauthenticated  = "UNAUTHENTICATED"
	TextCodeSessionLoading   = "SESSION_LOADING"
	TextCodeUserExists       = "USER_EXISTS"
	TextCodeInvalidPhone     = "INVALID_PHONE"
	TextCodePlantNotFound    = "PLANT_NOT_FOUND"
	TextCodeTourNotFound     = "TOUR_NOT_FOUND"
	TextCodeAlreadyInGarden  = "ALREADY_IN_GARDEN"
	TextCodeGardenNotFound   = "GARDEN_ENTRY_NOT_FOUND"
	TextCodeInvalidRoute     = "INVALID_ROUTE"
	TextCodeDuplicateRoute   = "DUPLICATE_ROUTE"
	TextCodeMultipleCatchAll = "MULTIPLE_CATCH_ALL"
)

// CodeServiceUnavailable is used while a request can not be served yet
const CodeServiceUnavailable = http.StatusServiceUnavailable

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned for wrong credentials
var ErrMismatchedHashAndPassword = errors.New("identifier or password mismatch", errors.CategoryAuth).
	WithTextCode(errors.TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned while an account cools down
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(errors.TextCodeTooManyAttempts).
	WithCode(errors.CodeTooManyRequests)

// ErrNoEmptyString empty passwords are not hashed
var ErrNoEmptyString = errors.New("password can not be empty", errors.CategoryValidation).
	WithTextCode(errors.TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired the session token is past its expiration
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(errors.TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed the session token could not be parsed
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(errors.TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(errors.TextCodeSessionDecodeError).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated the request carries no valid session
var ErrUnauthenticated = errors.New("unauthenticated", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrSessionLoading the request session has not resolved yet
var ErrSessionLoading = errors.New("session is still loading", errors.CategoryOperation).
	WithTextCode(TextCodeSessionLoading).
	WithCode(CodeServiceUnavailable)

// ErrUserExists email or username already registered
var ErrUserExists = errors.New("user already exists", errors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(errors.CodeConflict)

// ErrInvalidPhone phone number could not be parsed
var ErrInvalidPhone = errors.New("invalid phone number", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPhone).
	WithCode(errors.CodeBadRequest)

var (
	ErrPlantNotFound = errors.New("plant not found", errors.CategoryNotFound).
				WithTextCode(TextCodePlantNotFound).
				WithCode(errors.CodeNotFound)
	ErrTourNotFound = errors.New("tour not found", errors.CategoryNotFound).
			WithTextCode(TextCodeTourNotFound).
			WithCode(errors.CodeNotFound)
	ErrAlreadyInGarden = errors.New("plant already in garden", errors.CategoryConflict).
				WithTextCode(TextCodeAlreadyInGarden).
				WithCode(errors.CodeConflict)
	ErrGardenNotFound = errors.New("garden entry not found", errors.CategoryNotFound).
				WithTextCode(TextCodeGardenNotFound).
				WithCode(errors.CodeNotFound)
)

var (
	ErrInvalidRoute = errors.New("invalid route pattern", errors.CategoryValidation).
			WithTextCode(TextCodeInvalidRoute)
	ErrDuplicateRoute = errors.New("duplicate route pattern", errors.CategoryConflict).
				WithTextCode(TextCodeDuplicateRoute)
	ErrMultipleCatchAll = errors.New("more than one catch-all route", errors.CategoryConflict).
				WithTextCode(TextCodeMultipleCatchAll)
)

// wrapSentinel keeps sentinel in the chain of a new rich error that also
// carries cause as metadata.
func wrapSentinel(sentinel *errors.Error, cause error, meta map[string]any) *errors.Error {
	out := errors.Wrap(sentinel, sentinel.Category, sentinel.Message).
		WithTextCode(sentinel.TextCode).
		WithCode(sentinel.Code)
	if cause != nil {
		out = out.WithMetadata(map[string]any{"cause": cause.Error()})
	}
	if len(meta) > 0 {
		out = out.WithMetadata(meta)
	}
	return out
}

// StatusCode maps err to an HTTP status using its category when the
// error does not carry an explicit code.
func StatusCode(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}
	if richErr.Code != 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return errors.CodeUnauthorized
	case errors.CategoryAuthz:
		return errors.CodeForbidden
	case errors.CategoryNotFound:
		return errors.CodeNotFound
	case errors.CategoryConflict:
		return errors.CodeConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		return errors.CodeBadRequest
	case errors.CategoryRateLimit:
		return errors.CodeTooManyRequests
	case errors.CategoryMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return errors.CodeInternal
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) || strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
