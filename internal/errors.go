package internal

import (
	"net/http"

	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/validate"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// ErrCodeUnknown is the error code for unknown errors
	ErrCodeUnknown = "UNKNOWN_ERROR"
	// ErrCodeRepoError is returned when the request to a repo fails with an error
	ErrCodeRepoError = "STORAGE_QUERY_FAILED"
	// ErrCodeRequiredFieldMissing is returned when at least one required field has not been populated on an incoming
	// request
	ErrCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	// ErrCodeIllegalJSON is returned when the request did not contain a valid JSON body
	ErrCodeIllegalJSON = "ILLEGAL_JSON_REQUEST"
	// ErrCodeIllegalValue is returned when any field in the transferred data does not validate for some reason
	ErrCodeIllegalValue = "ILLEGAL_VALUE"
	// ErrCodeIllegalFilterValue is returned when a filter value of a list request cannot be converted to the type of
	// the filtered field
	ErrCodeIllegalFilterValue = "ILLEGAL_FILTER_VALUE"
	// ErrCodeValidationFailed is returned when a request body does not match the expected document structure
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	// ErrCodeDuplicate is returned when an entity would violate a uniqueness rule
	ErrCodeDuplicate = "DUPLICATE_ENTRY"
	// ErrCodeLocationNotFound is returned when the geocoder does not know the requested location
	ErrCodeLocationNotFound = "LOCATION_NOT_FOUND"
	// ErrCodeGeocoderFailed is returned when the geocoding provider could not be reached or failed
	ErrCodeGeocoderFailed = "GEOCODER_FAILED"
	// ErrCodeUserNotFound is returned when a referenced user does not exist
	ErrCodeUserNotFound = "USER_NOT_FOUND"
	// ErrCodeBootcampNotFound is returned when a referenced bootcamp does not exist
	ErrCodeBootcampNotFound = "BOOTCAMP_NOT_FOUND"
	// ErrCodeCourseNotFound is returned when a referenced course does not exist
	ErrCodeCourseNotFound = "COURSE_NOT_FOUND"
	// ErrCodeReviewNotFound is returned when a referenced review does not exist
	ErrCodeReviewNotFound = "REVIEW_NOT_FOUND"
	// ErrCodeTokenNotFound is returned when a password reset token is unknown or has expired
	ErrCodeTokenNotFound = "INVALID_TOKEN"
	// ErrCodeLoginFailed is returned when the user fails to login for some reason
	ErrCodeLoginFailed = "LOGIN_FAILED"
	// ErrCodeNotAuthorized is returned when the user tried to access an API that needs a logged-in user, but the user
	// has no valid token
	ErrCodeNotAuthorized = "NOT_AUTHORIZED"
	// ErrCodeForbidden is returned when the logged-in user is not allowed to perform the requested action
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeRateLimited is returned when a client sent too many requests
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeUploadFailed is returned when an uploaded file is missing, too large or of the wrong type
	ErrCodeUploadFailed = "UPLOAD_FAILED"
	// ErrCodeMailFailed is returned when an e-mail could not be sent
	ErrCodeMailFailed = "MAIL_FAILED"
)

var (
	// ErrNotAuthorized is returned for calls that need a logged-in user
	ErrNotAuthorized = MakeError(http.StatusUnauthorized, ErrCodeNotAuthorized, "Not authorized to access this route")
	// ErrDuplicate is returned when a user tries to do the same thing twice
	ErrDuplicate = MakeError(http.StatusBadRequest, ErrCodeDuplicate, "You have already performed this action")
	// ErrRateLimited is returned when a client exceeds the request limit
	ErrRateLimited = MakeError(http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests, try again later")
)

// HTTPError is an error that contains information about the error message to return to the client
type HTTPError struct {
	message string
	code    string
	status  int
	data    interface{}
}

// MakeError creates a new HTTPError with the given contents
func MakeError(status int, code, message string) *HTTPError {
	return MakeErrorWithData(status, code, message, nil)
}

// MakeErrorWithData creates a new HTTPError with the given contents and an additional data element
func MakeErrorWithData(status int, code, message string, data interface{}) *HTTPError {
	return &HTTPError{message, code, status, data}
}

// Error implements the errorer interface
func (e *HTTPError) Error() string {
	return e.message
}

// Status returns the HTTP status that should be returned
func (e *HTTPError) Status() int {
	return e.status
}

// ErrorCode returns the machine-readable error code
func (e *HTTPError) ErrorCode() string {
	return e.code
}

// Data returns additional data about the error
func (e *HTTPError) Data() interface{} {
	return e.data
}

// errForbidden creates the error returned when the role of the user does not allow an action
func errForbidden(role string) *HTTPError {
	return MakeError(
		http.StatusForbidden,
		ErrCodeForbidden,
		"User role "+role+" is not authorized to perform this action",
	)
}

// errNotFound creates the error returned for missing entities
func errNotFound(code, entity, id string) *HTTPError {
	return MakeError(http.StatusNotFound, code, entity+" not found with id of "+id)
}

// errValidation converts a failed body validation into an HTTP error
func errValidation(err error) *HTTPError {
	if verr, ok := err.(*validate.Error); ok {
		return MakeErrorWithData(http.StatusBadRequest, ErrCodeValidationFailed, "Invalid request data", verr.Details)
	}
	return MakeErrorWithData(http.StatusBadRequest, ErrCodeIllegalJSON, "Failed to decode JSON body", err)
}

// errLookup converts a failed geocoder lookup into an HTTP error
func errLookup(err *query.LookupError) *HTTPError {
	if err.NotFound {
		return MakeErrorWithData(
			http.StatusNotFound,
			ErrCodeLocationNotFound,
			"No location found for '"+err.Code+"'",
			err.Cause(),
		)
	}
	return MakeErrorWithData(http.StatusBadGateway, ErrCodeGeocoderFailed, "Location lookup failed", err.Cause())
}

// repoError translates an error returned by a repository into an HTTP error and logs unexpected errors. The
// notFound error is returned for missing entities.
func repoError(logger *logrus.Entry, err error, notFound *HTTPError, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*HTTPError); ok {
		return err
	}
	// LookupError has a Cause method itself - check before unwrapping
	switch e := err.(type) {
	case *query.LookupError:
		return errLookup(e)
	case *repos.FilterError:
		return MakeErrorWithData(http.StatusBadRequest, ErrCodeIllegalFilterValue, e.Error(), e.Field)
	}
	switch errors.Cause(err) {
	case repos.ErrEntityNotExisting:
		if notFound != nil {
			return notFound
		}
	case repos.ErrDuplicate:
		return ErrDuplicate
	}
	logger.WithError(err).Error(msg)
	return MakeError(http.StatusInternalServerError, ErrCodeRepoError, msg)
}
