package dynamo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-review-ledger/internal/domain"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are visited in sorted order so the placeholders are deterministic.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		parts = append(parts, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	ue.Expr = "SET " + strings.Join(parts, ", ")
	return ue, nil
}

// emailKey is the case-folded form used as the uniqueness key for emails.
func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Positions of the items inside the allocation transaction.
const (
	txItemEmailClaim = iota
	txItemSlotCounter
	txItemUser
	txItemSessionClaim
)

// Positions of the items inside the token rotation transaction.
const (
	txRotateUser = iota
	txRotateNewClaim
	txRotateOldClaim
)

// translateAllocateError maps a cancelled allocation transaction onto domain
// errors using the per-item cancellation reasons.
func translateAllocateError(err error) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("allocate account slot: %w", err)
	}
	reasons := tce.CancellationReasons
	failed := func(i int) bool {
		return i < len(reasons) && aws.ToString(reasons[i].Code) == "ConditionalCheckFailed"
	}
	switch {
	case failed(txItemEmailClaim):
		return domain.ErrDuplicateEmail
	case failed(txItemSlotCounter):
		return fmt.Errorf("account slot taken by a concurrent registration: %w", domain.ErrConflict)
	case failed(txItemUser):
		return fmt.Errorf("user id already exists: %w", domain.ErrConflict)
	case failed(txItemSessionClaim):
		return fmt.Errorf("session token already claimed: %w", domain.ErrConflict)
	}
	return fmt.Errorf("allocate account slot: %w", err)
}

// translateRotateError maps a cancelled rotation transaction onto domain errors.
func translateRotateError(userID string, err error) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("rotate session token: %w", err)
	}
	reasons := tce.CancellationReasons
	failed := func(i int) bool {
		return i < len(reasons) && aws.ToString(reasons[i].Code) == "ConditionalCheckFailed"
	}
	switch {
	case failed(txRotateUser):
		return fmt.Errorf("user %s rotated concurrently: %w", userID, domain.ErrConflict)
	case failed(txRotateNewClaim):
		return fmt.Errorf("session token already claimed: %w", domain.ErrConflict)
	}
	return fmt.Errorf("rotate session token: %w", err)
}
