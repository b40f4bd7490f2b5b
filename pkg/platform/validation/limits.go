package validation

import (
	"fmt"
	"strings"

	dErrors "kinship/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Sufficient for JSON APIs while preventing memory exhaustion attacks.
	MaxBodySize = 64 * 1024
)

// Domain field limits
const (
	// MaxMessageLength is the maximum length of a reminder message.
	MaxMessageLength = 200

	// MaxBulkIDs is the maximum number of reminder IDs accepted by a
	// bulk status transition request.
	MaxBulkIDs = 500
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckRequiredString validates that a string is non-empty after trimming whitespace.
func CheckRequiredString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s is required", fieldName))
	}
	return nil
}
