package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-review-ledger/internal/config"
	"github.com/go-review-ledger/internal/domain"
)

// API is the subset of the DynamoDB client used by RegistryStore.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// RegistryStore keeps the account registry in four tables: users, a
// case-folded email claim per user, a session token claim per user, and a
// single slot counter row. Allocation writes all four in one conditional
// transaction; the mutex only avoids needless transaction conflicts between
// goroutines of this process.
type RegistryStore struct {
	mu     sync.Mutex
	client API
	tables config.DynamoTables
}

func NewRegistryStore(client API, tables config.DynamoTables) *RegistryStore {
	return &RegistryStore{client: client, tables: tables}
}

func (s *RegistryStore) Allocate(ctx context.Context, u *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.nextSlot(ctx)
	if err != nil {
		return nil, err
	}
	created := *u
	created.AccountSlot = slot
	item, err := attributevalue.MarshalMap(created)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	items := make([]types.TransactWriteItem, 4)
	items[txItemEmailClaim] = types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(s.tables.UserEmails),
		Item: map[string]types.AttributeValue{
			fieldEmailKey: &types.AttributeValueMemberS{Value: emailKey(u.Email)},
			fieldUserID:   &types.AttributeValueMemberS{Value: u.ID},
		},
		ConditionExpression: aws.String("attribute_not_exists(" + fieldEmailKey + ")"),
	}}
	items[txItemSlotCounter] = types.TransactWriteItem{Update: &types.Update{
		TableName:                aws.String(s.tables.Registry),
		Key:                      strKey(fieldRegistryID, registryID),
		UpdateExpression:         aws.String("SET #n = :next"),
		ConditionExpression:      aws.String("attribute_not_exists(#n) OR #n = :cur"),
		ExpressionAttributeNames: map[string]string{"#n": fieldNextSlot},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next": &types.AttributeValueMemberN{Value: strconv.Itoa(slot + 1)},
			":cur":  &types.AttributeValueMemberN{Value: strconv.Itoa(slot)},
		},
	}}
	items[txItemUser] = types.TransactWriteItem{Put: &types.Put{
		TableName:           aws.String(s.tables.Users),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + fieldUserID + ")"),
	}}
	items[txItemSessionClaim] = types.TransactWriteItem{Put: s.putSessionClaim(u.SessionToken, u.ID)}

	if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return nil, translateAllocateError(err)
	}
	return &created, nil
}

// RotateToken swaps the user's token and its claim in one transaction. The
// update is conditioned on the token read beforehand, so a concurrent rotation
// fails with ErrConflict instead of leaving an orphaned claim.
func (s *RegistryStore) RotateToken(ctx context.Context, userID, token string) error {
	current, err := s.get(ctx, userID)
	if err != nil {
		return err
	}

	ue, err := buildUpdateExpr(map[string]interface{}{fieldSessionToken: token})
	if err != nil {
		return err
	}
	ue.Values[":old"] = &types.AttributeValueMemberS{Value: current.SessionToken}

	items := []types.TransactWriteItem{
		txRotateUser: {Update: &types.Update{
			TableName:                 aws.String(s.tables.Users),
			Key:                       strKey(fieldUserID, userID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       aws.String("#f0 = :old"),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		}},
		txRotateNewClaim: {Put: s.putSessionClaim(token, userID)},
	}
	if current.SessionToken != "" {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(s.tables.UserSessions),
			Key:       strKey(fieldTokenKey, current.SessionToken),
		}})
	}

	if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return translateRotateError(userID, err)
	}
	return nil
}

func (s *RegistryStore) putSessionClaim(token, userID string) *types.Put {
	return &types.Put{
		TableName: aws.String(s.tables.UserSessions),
		Item: map[string]types.AttributeValue{
			fieldTokenKey: &types.AttributeValueMemberS{Value: token},
			fieldUserID:   &types.AttributeValueMemberS{Value: userID},
		},
		ConditionExpression: aws.String("attribute_not_exists(" + fieldTokenKey + ")"),
	}
}

func (s *RegistryStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.UserEmails),
		Key:            strKey(fieldEmailKey, emailKey(email)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return s.followClaim(ctx, out.Item)
}

// GetByToken resolves a token through the session_token GSI. GSIs are
// eventually consistent, so a hit is re-read from the base table and
// discarded if the token has since been rotated, and a miss falls back to the
// token claim, which is written together with the token and read consistently.
func (s *RegistryStore) GetByToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.Users),
		IndexName:                 aws.String(indexSessionToken),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldSessionToken},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: token}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}

	var u *domain.User
	if len(out.Items) > 0 {
		var hit domain.User
		if err := attributevalue.UnmarshalMap(out.Items[0], &hit); err != nil {
			return nil, err
		}
		u, err = s.get(ctx, hit.ID)
	} else {
		u, err = s.getByTokenClaim(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	if u.SessionToken != token {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (s *RegistryStore) getByTokenClaim(ctx context.Context, token string) (*domain.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.UserSessions),
		Key:            strKey(fieldTokenKey, token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return s.followClaim(ctx, out.Item)
}

// followClaim loads the user an email or token claim points at.
func (s *RegistryStore) followClaim(ctx context.Context, item map[string]types.AttributeValue) (*domain.User, error) {
	if item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var claim struct {
		UserID string `dynamodbav:"user_id"`
	}
	if err := attributevalue.UnmarshalMap(item, &claim); err != nil {
		return nil, err
	}
	return s.get(ctx, claim.UserID)
}

func (s *RegistryStore) Size(ctx context.Context) (int, error) {
	return s.nextSlot(ctx)
}

func (s *RegistryStore) get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Users),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// nextSlot reads the slot counter; a missing row means no user was ever registered.
func (s *RegistryStore) nextSlot(ctx context.Context) (int, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Registry),
		Key:            strKey(fieldRegistryID, registryID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("read slot counter: %w", err)
	}
	if out.Item == nil {
		return 0, nil
	}
	var row struct {
		NextSlot int `dynamodbav:"next_slot"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return 0, fmt.Errorf("unmarshal slot counter: %w", err)
	}
	return row.NextSlot, nil
}
