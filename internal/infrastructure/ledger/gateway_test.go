package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/go-review-ledger/internal/domain"
)

const testArtifact = "testdata/ReviewForum.json"

var testContract = common.HexToAddress("0x00000000000000000000000000000000000000C0")

// --- fake node ---

type fakeNode struct {
	mu sync.Mutex

	abi       abi.ABI
	accounts  []common.Address
	networkID int64
	code      []byte

	reviews  []reviewTuple
	receipts map[common.Hash]*types.Receipt
	block    uint64

	pendingPolls int // receipt polls answered with NotFound before the receipt appears
	sendErr      error
	revert       bool
	closed       bool
	sent         []TxArgs
}

func newFakeNode(t *testing.T, identities int) *fakeNode {
	t.Helper()
	art, err := LoadArtifact(testArtifact)
	require.NoError(t, err)
	n := &fakeNode{
		abi:       art.ABI,
		networkID: 5777,
		code:      []byte{0x60, 0x80},
		receipts:  make(map[common.Hash]*types.Receipt),
		block:     10,
	}
	for i := 0; i < identities; i++ {
		n.accounts = append(n.accounts, common.BigToAddress(big.NewInt(int64(i+1))))
	}
	return n
}

func (n *fakeNode) dialer(ctx context.Context, url string) (Backend, error) { return n, nil }

func (n *fakeNode) NetworkID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(n.networkID), nil
}

func (n *fakeNode) Accounts(ctx context.Context) ([]common.Address, error) {
	return n.accounts, nil
}

func (n *fakeNode) CodeAt(ctx context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	if contract != testContract {
		return nil, nil
	}
	return n.code, nil
}

func (n *fakeNode) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	method, err := n.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case methodGetReviews:
		rows := n.reviews
		if rows == nil {
			rows = []reviewTuple{}
		}
		return method.Outputs.Pack(rows)
	case methodGetReviewCount:
		return method.Outputs.Pack(big.NewInt(int64(len(n.reviews))))
	}
	return nil, errors.New("unexpected call " + method.Name)
}

func (n *fakeNode) SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return common.Hash{}, n.sendErr
	}
	n.sent = append(n.sent, args)
	method, err := n.abi.MethodById(args.Data[:4])
	if err != nil {
		return common.Hash{}, err
	}
	in, err := method.Inputs.Unpack(args.Data[4:])
	if err != nil {
		return common.Hash{}, err
	}

	n.block++
	hash := common.BigToHash(big.NewInt(int64(n.block)))
	status := types.ReceiptStatusSuccessful
	if n.revert {
		status = types.ReceiptStatusFailed
	} else {
		n.reviews = append(n.reviews, reviewTuple{
			AnonymousId: crypto.Keccak256Hash(args.From.Bytes()),
			Message:     in[0].(string),
			Timestamp:   big.NewInt(1_700_000_000 + int64(n.block)),
			BlockNumber: new(big.Int).SetUint64(n.block),
		})
	}
	n.receipts[hash] = &types.Receipt{
		Status:      status,
		TxHash:      hash,
		GasUsed:     21000 + uint64(len(args.Data)),
		BlockNumber: new(big.Int).SetUint64(n.block),
	}
	return hash, nil
}

func (n *fakeNode) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pendingPolls > 0 {
		n.pendingPolls--
		return nil, ethereum.NotFound
	}
	r, ok := n.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (n *fakeNode) Close() { n.closed = true }

// --- helpers ---

func testConfig() Config {
	return Config{
		RPCURL:       "http://ledger.test",
		ArtifactPath: testArtifact,
		GasLimit:     500000,
		Timeout:      2 * time.Second,
		PollInterval: time.Millisecond,
	}
}

func newReadyGateway(t *testing.T, node *fakeNode) *Gateway {
	t.Helper()
	g := NewGateway(testConfig(), zap.NewNop(), WithDialer(node.dialer))
	require.NoError(t, g.Init(context.Background()))
	return g
}

// --- tests ---

func TestInit_BindsContract(t *testing.T) {
	node := newFakeNode(t, 3)
	g := newReadyGateway(t, node)

	assert.True(t, g.Ready())
	assert.Equal(t, 3, g.Identities())
	require.NoError(t, g.Init(context.Background()), "init is idempotent")
}

func TestInit_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(n *fakeNode, cfg *Config)
		wantErr string
	}{
		{"no identities", func(n *fakeNode, _ *Config) { n.accounts = nil }, "no identities"},
		{"missing artifact", func(_ *fakeNode, cfg *Config) { cfg.ArtifactPath = "testdata/missing.json" }, "artifact not found"},
		{"unknown network", func(n *fakeNode, _ *Config) { n.networkID = 1 }, "not deployed to network 1"},
		{"no code at address", func(n *fakeNode, _ *Config) { n.code = nil }, "no contract code"},
		{"bad override", func(_ *fakeNode, cfg *Config) { cfg.ContractAddress = "nope" }, "invalid contract address"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			node := newFakeNode(t, 2)
			cfg := testConfig()
			tc.mutate(node, &cfg)

			g := NewGateway(cfg, zap.NewNop(), WithDialer(node.dialer))
			err := g.Init(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.False(t, g.Ready())
			assert.True(t, node.closed)
		})
	}
}

func TestInit_DialError(t *testing.T) {
	dialErr := errors.New("connection refused")
	g := NewGateway(testConfig(), zap.NewNop(), WithDialer(func(context.Context, string) (Backend, error) {
		return nil, dialErr
	}))
	assert.ErrorIs(t, g.Init(context.Background()), dialErr)
}

func TestOperations_BeforeInit(t *testing.T) {
	g := NewGateway(testConfig(), zap.NewNop(), WithDialer(newFakeNode(t, 1).dialer))
	ctx := context.Background()

	_, err := g.Submit(ctx, "hello", 0)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
	_, err = g.Reviews(ctx)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
	_, err = g.ReviewCount(ctx)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
}

func TestSubmit_UsesSlotIdentity(t *testing.T) {
	node := newFakeNode(t, 3)
	node.pendingPolls = 2
	g := newReadyGateway(t, node)

	receipt, err := g.Submit(context.Background(), "great course", 2)
	require.NoError(t, err)

	assert.Equal(t, node.accounts[2].Hex(), receipt.FromIdentity)
	assert.Equal(t, uint64(11), receipt.BlockNumber)
	assert.NotZero(t, receipt.Cost)
	assert.Len(t, receipt.TxRef, 66)

	require.Len(t, node.sent, 1)
	assert.Equal(t, testContract, node.sent[0].To)
	assert.Equal(t, uint64(500000), node.sent[0].Gas)
}

func TestSubmit_SlotBeyondPoolFallsBackToFirstIdentity(t *testing.T) {
	node := newFakeNode(t, 2)
	g := newReadyGateway(t, node)

	receipt, err := g.Submit(context.Background(), "overflow", 5)
	require.NoError(t, err)
	assert.Equal(t, node.accounts[0].Hex(), receipt.FromIdentity)
}

func TestSubmit_AnonymousIDStablePerSlot(t *testing.T) {
	node := newFakeNode(t, 3)
	g := newReadyGateway(t, node)
	ctx := context.Background()

	for _, s := range []struct {
		msg  string
		slot int
	}{{"first", 1}, {"second", 1}, {"third", 2}} {
		_, err := g.Submit(ctx, s.msg, s.slot)
		require.NoError(t, err)
	}

	reviews, err := g.Reviews(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	assert.Equal(t, []string{"first", "second", "third"},
		[]string{reviews[0].Message, reviews[1].Message, reviews[2].Message})
	assert.Equal(t, reviews[0].AnonymousID, reviews[1].AnonymousID)
	assert.NotEqual(t, reviews[0].AnonymousID, reviews[2].AnonymousID)
	assert.Equal(t, crypto.Keccak256Hash(node.accounts[1].Bytes()).Hex(), reviews[0].AnonymousID)
	assert.Less(t, reviews[0].BlockNumber, reviews[2].BlockNumber)
	assert.NotZero(t, reviews[0].Timestamp)

	count, err := g.ReviewCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestReviews_Empty(t *testing.T) {
	g := newReadyGateway(t, newFakeNode(t, 1))

	reviews, err := g.Reviews(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestSubmit_SendFailureIsRejection(t *testing.T) {
	node := newFakeNode(t, 1)
	node.sendErr = errors.New("sender account not recognized")
	g := newReadyGateway(t, node)

	_, err := g.Submit(context.Background(), "hello", 0)
	assert.ErrorIs(t, err, domain.ErrLedgerRejected)
	assert.Contains(t, err.Error(), "sender account not recognized")
}

func TestSubmit_RevertIsRejection(t *testing.T) {
	node := newFakeNode(t, 1)
	node.revert = true
	g := newReadyGateway(t, node)

	_, err := g.Submit(context.Background(), "hello", 0)
	assert.ErrorIs(t, err, domain.ErrLedgerRejected)

	count, err := g.ReviewCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmit_ReceiptTimeout(t *testing.T) {
	node := newFakeNode(t, 1)
	node.pendingPolls = 1 << 30
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	g := NewGateway(cfg, zap.NewNop(), WithDialer(node.dialer))
	require.NoError(t, g.Init(context.Background()))

	_, err := g.Submit(context.Background(), "slow", 0)
	assert.ErrorIs(t, err, domain.ErrLedgerRejected)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_MakesGatewayUnavailable(t *testing.T) {
	node := newFakeNode(t, 1)
	g := newReadyGateway(t, node)
	g.Close()

	assert.True(t, node.closed)
	assert.False(t, g.Ready())
	_, err := g.Submit(context.Background(), "late", 0)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
}
