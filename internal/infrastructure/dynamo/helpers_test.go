package dynamo

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-review-ledger/internal/domain"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"session_token": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "session_token"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"session_token": "t",
		"email":         "a@b.com",
		"account_slot":  3,
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)
	assert.Equal(t, "account_slot", ue1.Names["#f0"])
	assert.Equal(t, "email", ue1.Names["#f1"])
	assert.Equal(t, "session_token", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestEmailKey_FoldsCaseAndSpace(t *testing.T) {
	assert.Equal(t, "alice@example.com", emailKey("  Alice@Example.COM "))
}

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{CancellationReasons: reasons}
}

func TestTranslateAllocateError(t *testing.T) {
	err := translateAllocateError(cancelled("ConditionalCheckFailed", "None", "None"))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	err = translateAllocateError(cancelled("None", "ConditionalCheckFailed", "None"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NotErrorIs(t, err, domain.ErrDuplicateEmail)

	err = translateAllocateError(cancelled("None", "None", "ConditionalCheckFailed"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	boom := errors.New("throttled")
	err = translateAllocateError(boom)
	assert.ErrorIs(t, err, boom)
}
