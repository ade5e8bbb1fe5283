package testutil

import (
	"net/http"
	"time"

	id "harvestcert/pkg/domain"
	"harvestcert/pkg/requestcontext"
)

// AsCaller sets the caller identity the auth middleware would have set.
// Invalid identities are not added.
func AsCaller(req *http.Request, who string) *http.Request {
	parsed, err := id.ParseIdentity(who)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
}

// AtTime pins the request time.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
