package sentinel

import "errors"

// Infrastructure facts returned by KV backends and stores, optionally wrapped.
// Services translate them into coded errors from pkg/domain-errors.
//
//   - ErrNotFound: key or record is absent
//   - ErrConflict: an optimistic transaction lost a race and may be retried
//   - ErrUnavailable: backend unreachable or closed
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
