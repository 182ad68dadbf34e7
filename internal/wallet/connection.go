package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/logger"
	"go.uber.org/zap"
)

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned by operations that require an active
// connection before any network call is made.
var ErrNotConnected = errors.New("wallet: not connected")

// ChainReader abstracts the on-chain read path (implemented by
// ethclient.Client against the network RPC).
type ChainReader interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Connection owns the lifecycle of the wallet provider connection and the
// addresses derived from it. All connection state lives here and is
// mutated only through its methods; dependents read it via the accessors.
type Connection struct {
	provider Provider
	reader   ChainReader

	mu         sync.Mutex
	state      State
	address    *common.Address
	subaccount *common.Address
	chainID    uint64
	balance    *big.Int
}

// NewConnection creates a connection manager around provider and reader.
// The manager starts disconnected; the provider's network is unknown
// (chain id zero) until a switch is confirmed.
func NewConnection(provider Provider, reader ChainReader) *Connection {
	return &Connection{
		provider: provider,
		reader:   reader,
		state:    Disconnected,
		balance:  new(big.Int),
	}
}

// Provider exposes the underlying provider for protocol calls made by
// collaborators (provisioner, authorizer, executor).
func (c *Connection) Provider() Provider {
	return c.provider
}

// Reader exposes the on-chain read path.
func (c *Connection) Reader() ChainReader {
	return c.reader
}

// Connect requests address enumeration from the provider and records the
// primary address from the first non-empty result.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.mu.Unlock()

	var addresses []common.Address
	if err := c.provider.Request(ctx, &addresses, "eth_requestAccounts"); err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return fmt.Errorf("failed to request accounts: %w", err)
	}
	if len(addresses) == 0 {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return errors.New("wallet: provider returned no accounts")
	}

	c.mu.Lock()
	addr := addresses[0]
	c.address = &addr
	c.state = Connected
	c.mu.Unlock()

	logger.Info("wallet connected", zap.String("address", addr.Hex()))
	return nil
}

// SwitchChain asks the provider to switch to the supported network. The
// switch is recorded only after the provider confirms it; later calls are
// no-ops. Provider errors propagate to the caller.
func (c *Connection) SwitchChain(ctx context.Context) error {
	c.mu.Lock()
	current := c.chainID
	c.mu.Unlock()
	if current == chain.ID {
		return nil
	}

	params := struct {
		ChainID string `json:"chainId"`
	}{ChainID: chain.HexID()}

	if err := c.provider.Request(ctx, nil, "wallet_switchEthereumChain", params); err != nil {
		return fmt.Errorf("failed to switch chain: %w", err)
	}

	c.mu.Lock()
	c.chainID = chain.ID
	c.mu.Unlock()
	return nil
}

// Disconnect calls the provider's disconnect and clears the primary
// address, sub-account, confirmed network and balance together. Permission and signer state
// is cleared by the owning service (see spend.Service.Disconnect).
func (c *Connection) Disconnect(ctx context.Context) error {
	err := c.provider.Disconnect(ctx)

	c.mu.Lock()
	c.state = Disconnected
	c.address = nil
	c.subaccount = nil
	c.chainID = 0
	c.balance = new(big.Int)
	c.mu.Unlock()

	if err != nil {
		logger.Warn("provider disconnect failed", zap.Error(err))
	}
	return err
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Address returns the primary wallet address, if connected.
func (c *Connection) Address() (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.address == nil {
		return common.Address{}, false
	}
	return *c.address, true
}

// SubAccount returns the linked sub-account address, if one was created.
func (c *Connection) SubAccount() (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subaccount == nil {
		return common.Address{}, false
	}
	return *c.subaccount, true
}

// SetAddresses records the primary and sub-account addresses returned by
// a linking flow.
func (c *Connection) SetAddresses(address, subaccount common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = &address
	c.subaccount = &subaccount
	c.state = Connected
}

// ChainID returns the confirmed network id, or zero when the provider's
// network has not been confirmed yet.
func (c *Connection) ChainID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainID
}

// Balance returns the last fetched primary-address balance in wei.
func (c *Connection) Balance() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balance)
}

// RefreshBalance fetches the primary address balance from the chain.
// No-op when not connected.
func (c *Connection) RefreshBalance(ctx context.Context) error {
	addr, ok := c.Address()
	if !ok {
		return nil
	}
	balance, err := c.reader.BalanceAt(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch balance: %w", err)
	}
	c.mu.Lock()
	c.balance = balance
	c.mu.Unlock()
	return nil
}
