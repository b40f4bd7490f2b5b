package validation

import (
	"strings"
	"testing"

	dErrors "kinship/pkg/domain-errors"

	"github.com/stretchr/testify/suite"
)

type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes when length equals max", func() {
		str := strings.Repeat("a", MaxMessageLength)
		s.NoError(CheckStringLength("message", str, MaxMessageLength))
	})

	s.Run("fails when length exceeds max", func() {
		str := strings.Repeat("a", MaxMessageLength+1)
		err := CheckStringLength("message", str, MaxMessageLength)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "message exceeds max length of 200")
	})
}

func (s *LimitsSuite) TestCheckRequiredString() {
	s.Run("passes for non-empty value", func() {
		s.NoError(CheckRequiredString("message", "call mom"))
	})

	s.Run("fails for empty value", func() {
		err := CheckRequiredString("message", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("fails for whitespace-only value", func() {
		err := CheckRequiredString("message", "   \t")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LimitsSuite) TestCheckSliceCount() {
	s.Run("passes at the boundary", func() {
		s.NoError(CheckSliceCount("ids", MaxBulkIDs, MaxBulkIDs))
	})

	s.Run("fails above the boundary", func() {
		err := CheckSliceCount("ids", MaxBulkIDs+1, MaxBulkIDs)
		s.Require().Error(err)
		s.Contains(err.Error(), "too many ids")
	})
}
