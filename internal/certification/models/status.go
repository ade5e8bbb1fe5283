package models

import (
	dErrors "harvestcert/pkg/domain-errors"
)

// Status is the certification state of a batch.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCertified Status = "certified"
	StatusRejected  Status = "rejected"
	StatusRevoked   Status = "revoked"
)

// transitions lists the allowed moves. Rejected batches may be certified
// again after new lab results.
var transitions = map[Status][]Status{
	StatusPending:   {StatusCertified, StatusRejected},
	StatusRejected:  {StatusCertified, StatusRejected},
	StatusCertified: {StatusRevoked},
	StatusRevoked:   nil,
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AwaitsDecision reports whether certify may be invoked.
func (s Status) AwaitsDecision() bool {
	return s == StatusPending || s == StatusRejected
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", raw)
	}
	return s, nil
}
