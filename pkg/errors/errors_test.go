package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicyCarriesRuleAndMissing(t *testing.T) {
	err := Policy(RuleState, "scholar_assigned", "project has no scholar")
	wrapped := fmt.Errorf("send to scholar: %w", err)

	require.True(t, IsCode(wrapped, CodePolicyViolation))
	require.Equal(t, RuleState, RuleOf(wrapped))
	require.Equal(t, "scholar_assigned", err.Meta[MetaMissing])
	require.Equal(t, "policy_violation: project has no scholar", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	require.Equal(t, CodeUnknown, CodeOf(fmt.Errorf("boom")))
	require.Equal(t, CodeNotFound, CodeOf(NotFound("project not found")))
	require.Equal(t, Rule(""), RuleOf(Invalid("bad")))
}
