package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// TxArgs describes a transaction signed by the node on behalf of From.
type TxArgs struct {
	From common.Address
	To   common.Address
	Gas  uint64
	Data []byte
}

// Backend is the JSON-RPC surface the gateway needs from a ledger node.
type Backend interface {
	NetworkID(ctx context.Context) (*big.Int, error)
	// Accounts lists the identities the node can sign for.
	Accounts(ctx context.Context) ([]common.Address, error)
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error)
	// TransactionReceipt returns ethereum.NotFound while the transaction is pending.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// Dialer opens a Backend for a node URL.
type Dialer func(ctx context.Context, url string) (Backend, error)

// rpcBackend talks to a development node (Ganache, Hardhat, geth --dev) that
// manages unlocked identities and signs eth_sendTransaction itself.
type rpcBackend struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

// Dial connects to the JSON-RPC endpoint at url.
func Dial(ctx context.Context, url string) (Backend, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger: %w", err)
	}
	return &rpcBackend{rpc: c, eth: ethclient.NewClient(c)}, nil
}

func (b *rpcBackend) NetworkID(ctx context.Context) (*big.Int, error) {
	return b.eth.NetworkID(ctx)
}

func (b *rpcBackend) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := b.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (b *rpcBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return b.eth.CodeAt(ctx, contract, blockNumber)
}

func (b *rpcBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.eth.CallContract(ctx, msg, blockNumber)
}

func (b *rpcBackend) SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error) {
	var hash common.Hash
	err := b.rpc.CallContext(ctx, &hash, "eth_sendTransaction", map[string]interface{}{
		"from": args.From,
		"to":   args.To,
		"gas":  hexutil.Uint64(args.Gas),
		"data": hexutil.Bytes(args.Data),
	})
	return hash, err
}

func (b *rpcBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return b.eth.TransactionReceipt(ctx, txHash)
}

func (b *rpcBackend) Close() {
	b.rpc.Close()
}
