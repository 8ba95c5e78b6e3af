package drive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	ErrUnauthorized = errors.New("drive: unauthorised (invalid credentials)")
	ErrNotFound     = errors.New("drive: file not found")
	ErrRateLimited  = errors.New("drive: rate limit exceeded")
	ErrTooLarge     = errors.New("drive: file exceeds download limit")
)

// classify maps googleapi status codes onto package errors, keeping the
// original error in the chain.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch {
	case gerr.Code == http.StatusUnauthorized:
		return errors.Join(ErrUnauthorized, err)
	case gerr.Code == http.StatusNotFound:
		return errors.Join(ErrNotFound, err)
	case gerr.Code == http.StatusTooManyRequests, isRateLimitReason(gerr):
		return errors.Join(ErrRateLimited, err)
	}
	return err
}

// Drive reports per-user quota exhaustion as 403 with a rate limit reason.
func isRateLimitReason(gerr *googleapi.Error) bool {
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, e := range gerr.Errors {
		if e.Reason == "userRateLimitExceeded" || e.Reason == "rateLimitExceeded" {
			return true
		}
	}
	return false
}
