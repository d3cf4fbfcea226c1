// Package ledger binds the review forum contract on an Ethereum-compatible
// node. The node owns the writer identities; the contract derives each
// review's anonymous id from the identity that sent it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/go-review-ledger/internal/domain"
	"github.com/go-review-ledger/internal/pkg/metrics"
)

const (
	methodSubmitReview   = "submitReview"
	methodGetReviews     = "getReviews"
	methodGetReviewCount = "getReviewCount"
)

type Config struct {
	RPCURL          string
	ArtifactPath    string
	ContractAddress string
	GasLimit        uint64
	Timeout         time.Duration
	PollInterval    time.Duration
}

// reviewTuple mirrors the contract's Review struct; field order matters for ABI decoding.
type reviewTuple struct {
	AnonymousId [32]byte
	Message     string
	Timestamp   *big.Int
	BlockNumber *big.Int
}

// Gateway is the only path from the application to the ledger.
// Submit and the read methods fail with domain.ErrLedgerUnavailable until Init succeeds.
type Gateway struct {
	cfg    Config
	dial   Dialer
	logger *zap.Logger

	mu       sync.RWMutex
	ready    bool
	backend  Backend
	accounts []common.Address
	contract common.Address
	abi      abi.ABI
}

type Option func(*Gateway)

// WithDialer replaces the JSON-RPC dialer.
func WithDialer(d Dialer) Option {
	return func(g *Gateway) { g.dial = d }
}

func NewGateway(cfg Config, logger *zap.Logger, opts ...Option) *Gateway {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	g := &Gateway{cfg: cfg, dial: Dial, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Init connects to the node, enumerates its identities and binds the deployed
// contract. It is idempotent; once it has succeeded later calls return nil.
// A failure leaves the gateway unusable and should stop the process.
func (g *Gateway) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready {
		return nil
	}

	backend, err := g.dial(ctx, g.cfg.RPCURL)
	if err != nil {
		return err
	}
	if err := g.bind(ctx, backend); err != nil {
		backend.Close()
		return err
	}
	return nil
}

func (g *Gateway) bind(ctx context.Context, backend Backend) error {
	networkID, err := backend.NetworkID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get network ID: %w", err)
	}
	accounts, err := backend.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ledger identities: %w", err)
	}
	if len(accounts) == 0 {
		return errors.New("ledger node exposes no identities")
	}
	g.logger.Info("Connected to ledger",
		zap.String("rpc", g.cfg.RPCURL),
		zap.String("network_id", networkID.String()),
		zap.Int("identities", len(accounts)))

	art, err := LoadArtifact(g.cfg.ArtifactPath)
	if err != nil {
		return err
	}
	addr, err := art.Address(networkID, g.cfg.ContractAddress)
	if err != nil {
		return err
	}
	code, err := backend.CodeAt(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("failed to read contract code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("no contract code at %s on network %s", addr.Hex(), networkID)
	}

	g.backend = backend
	g.accounts = accounts
	g.contract = addr
	g.abi = art.ABI
	g.ready = true

	g.logger.Info("Review contract loaded",
		zap.String("contract", art.ContractName),
		zap.String("address", addr.Hex()))
	return nil
}

// Ready reports whether Init has completed.
func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

// Identities returns the number of writer identities the node exposes.
func (g *Gateway) Identities() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.accounts)
}

// Close releases the node connection.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.backend != nil {
		g.backend.Close()
	}
	g.backend = nil
	g.ready = false
}

type bound struct {
	backend  Backend
	accounts []common.Address
	contract common.Address
	abi      abi.ABI
}

func (g *Gateway) snapshot() (*bound, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.ready {
		return nil, domain.ErrLedgerUnavailable
	}
	return &bound{backend: g.backend, accounts: g.accounts, contract: g.contract, abi: g.abi}, nil
}

// identity maps an account slot to a node identity. Slots beyond the pool
// share identity 0, which makes their reviews indistinguishable on-chain;
// operators must provision at least as many identities as users.
func (g *Gateway) identity(b *bound, slot int) common.Address {
	if slot >= 0 && slot < len(b.accounts) {
		return b.accounts[slot]
	}
	metrics.LedgerIdentityFallback.Inc()
	g.logger.Warn("Account slot exceeds ledger identity pool, using identity 0",
		zap.Int("slot", slot),
		zap.Int("identities", len(b.accounts)))
	return b.accounts[0]
}

// Submit writes message to the contract from the identity bound to slot and
// waits for the receipt. The write is not retried.
func (g *Gateway) Submit(ctx context.Context, message string, slot int) (*domain.SubmissionReceipt, error) {
	b, err := g.snapshot()
	if err != nil {
		return nil, err
	}
	from := g.identity(b, slot)

	data, err := b.abi.Pack(methodSubmitReview, message)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", methodSubmitReview, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	hash, err := b.backend.SendTransaction(ctx, TxArgs{From: from, To: b.contract, Gas: g.cfg.GasLimit, Data: data})
	if err != nil {
		g.logger.Error("Review transaction not accepted", zap.String("from", from.Hex()), zap.Error(err))
		return nil, fmt.Errorf("send review transaction: %w: %w", domain.ErrLedgerRejected, err)
	}

	receipt, err := g.waitReceipt(ctx, b.backend, hash)
	metrics.LedgerWriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		g.logger.Error("Review transaction unconfirmed", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		return nil, fmt.Errorf("await receipt %s: %w: %w", hash.Hex(), domain.ErrLedgerRejected, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		g.logger.Error("Review transaction reverted",
			zap.String("tx_hash", hash.Hex()),
			zap.Uint64("gas_used", receipt.GasUsed))
		return nil, fmt.Errorf("transaction %s reverted: %w", hash.Hex(), domain.ErrLedgerRejected)
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	g.logger.Info("Review transaction confirmed",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("block", block),
		zap.Uint64("gas_used", receipt.GasUsed))

	return &domain.SubmissionReceipt{
		TxRef:        hash.Hex(),
		BlockNumber:  block,
		Cost:         receipt.GasUsed,
		FromIdentity: from.Hex(),
	}, nil
}

func (g *Gateway) waitReceipt(ctx context.Context, backend Backend, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Reviews returns every review in contract order.
func (g *Gateway) Reviews(ctx context.Context) ([]domain.Review, error) {
	b, err := g.snapshot()
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, b, methodGetReviews)
	if err != nil {
		return nil, err
	}
	var rows []reviewTuple
	if err := b.abi.UnpackIntoInterface(&rows, methodGetReviews, out); err != nil {
		return nil, fmt.Errorf("failed to unpack reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, domain.Review{
			AnonymousID: common.Hash(r.AnonymousId).Hex(),
			Message:     r.Message,
			Timestamp:   bigToUint64(r.Timestamp),
			BlockNumber: bigToUint64(r.BlockNumber),
		})
	}
	return reviews, nil
}

// ReviewCount returns the number of reviews stored by the contract.
func (g *Gateway) ReviewCount(ctx context.Context) (uint64, error) {
	b, err := g.snapshot()
	if err != nil {
		return 0, err
	}
	out, err := g.call(ctx, b, methodGetReviewCount)
	if err != nil {
		return 0, err
	}
	values, err := b.abi.Unpack(methodGetReviewCount, out)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack review count: %w", err)
	}
	if len(values) == 0 {
		return 0, errors.New("empty review count result")
	}
	count, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected review count type %T", values[0])
	}
	return bigToUint64(count), nil
}

func (g *Gateway) call(ctx context.Context, b *bound, method string) ([]byte, error) {
	data, err := b.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	out, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &b.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	return out, nil
}

func bigToUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}
