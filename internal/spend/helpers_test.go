package spend

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"github.com/tipcast/tipcast-api/internal/session"
	"github.com/tipcast/tipcast-api/internal/signer"
	"github.com/tipcast/tipcast-api/internal/wallet"
	"go.uber.org/zap"

	ethereum "github.com/ethereum/go-ethereum"
)

var (
	testAccount    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSubAccount = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testRecipient  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type providerCall struct {
	method string
	params []interface{}
}

// fakeProvider records every request and answers through an optional
// handler.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []providerCall
	handler func(result interface{}, method string, params ...interface{}) error
}

func (f *fakeProvider) Request(_ context.Context, result interface{}, method string, params ...interface{}) error {
	f.mu.Lock()
	f.calls = append(f.calls, providerCall{method: method, params: params})
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		return handler(result, method, params...)
	}
	return nil
}

func (f *fakeProvider) Disconnect(context.Context) error { return nil }

func (f *fakeProvider) recorded() []providerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providerCall{}, f.calls...)
}

// fakeReader serves canned contract-read results.
type fakeReader struct {
	mu     sync.Mutex
	result []byte
	err    error
	calls  int
}

func (f *fakeReader) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeReader) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeReader) set(result []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = result
	f.err = err
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// rpcError satisfies the provider error interface used for owner-repair
// detection.
type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

func openTestStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestConnection(provider wallet.Provider, reader wallet.ChainReader) *wallet.Connection {
	conn := wallet.NewConnection(provider, reader)
	conn.SetAddresses(testAccount, testSubAccount)
	return conn
}

func newTestResolver(t *testing.T, store *session.Store) *signer.Resolver {
	t.Helper()
	resolver, err := signer.NewResolver(store, nil)
	require.NoError(t, err)
	return resolver
}

func testPermission() *Permission {
	return &Permission{
		Account:   testAccount,
		Spender:   testSubAccount,
		Token:     common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"),
		Allowance: (*hexutil.Big)(big.NewInt(2e15)),
		Period:    hexutil.Uint64(DefaultPeriodSeconds),
		Start:     hexutil.Uint64(1700000000),
		End:       hexutil.Uint64(1700086400),
		Salt:      DefaultSalt(),
		ExtraData: hexutil.Bytes{},
	}
}

func encodePeriod(t *testing.T, start, end uint64, spent *big.Int) []byte {
	t.Helper()
	out, err := managerABI.Methods["getCurrentPeriod"].Outputs.Pack(periodTuple{
		Start: new(big.Int).SetUint64(start),
		End:   new(big.Int).SetUint64(end),
		Spend: spent,
	})
	require.NoError(t, err)
	return out
}
