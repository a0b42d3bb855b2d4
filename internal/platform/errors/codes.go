// Package errors provides structured error handling for the combat core.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors (malformed input, fail fast, no partial effect)
	CodeValidation       Code = "VALIDATION"
	CodeEmptyPickPool    Code = "EMPTY_PICK_POOL"
	CodeUnknownEventType Code = "UNKNOWN_EVENT_TYPE"

	// Not-found errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeCharacterMissing Code = "CHARACTER_MISSING"
	CodeSessionMissing   Code = "SESSION_MISSING"
	CodeCampaignMissing  Code = "CAMPAIGN_MISSING"

	// Conflict errors
	CodeConflict             Code = "CONFLICT"
	CodeCombatNotEnded       Code = "COMBAT_NOT_ENDED"
	CodeDuplicateRewardGrant Code = "DUPLICATE_REWARD_GRANT"

	// Upstream persistence errors
	CodeUpstreamPersistence Code = "UPSTREAM_PERSISTENCE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeValidation, CodeEmptyPickPool, CodeUnknownEventType:
		return codes.InvalidArgument
	case CodeNotFound, CodeCharacterMissing, CodeSessionMissing, CodeCampaignMissing:
		return codes.NotFound
	case CodeCombatNotEnded:
		return codes.FailedPrecondition
	case CodeConflict, CodeDuplicateRewardGrant:
		return codes.Aborted
	case CodeUpstreamPersistence:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
