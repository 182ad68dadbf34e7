package spend

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tipcast/tipcast-api/internal/logger"
	"github.com/tipcast/tipcast-api/internal/session"
	"github.com/tipcast/tipcast-api/internal/signer"
	"github.com/tipcast/tipcast-api/internal/wallet"
	"go.uber.org/zap"
)

// Service is the facade over the spend-permission lifecycle: linking,
// authorization, accounting and delegated execution. It owns the active
// (permission, signature) pair; collaborators receive it per call and
// never cache it themselves.
type Service struct {
	conn        *wallet.Connection
	store       *session.Store
	resolver    *signer.Resolver
	authorizer  *Authorizer
	accountant  *Accountant
	provisioner *Provisioner
	executor    *Executor

	mu        sync.Mutex
	active    *Permission
	signature hexutil.Bytes
}

// NewService wires the lifecycle components together.
func NewService(conn *wallet.Connection, store *session.Store, resolver *signer.Resolver, paymasterURL string) *Service {
	accountant := NewAccountant(conn.Reader())
	return &Service{
		conn:        conn,
		store:       store,
		resolver:    resolver,
		authorizer:  NewAuthorizer(conn, store),
		accountant:  accountant,
		provisioner: NewProvisioner(conn, resolver, store),
		executor:    NewExecutor(conn, resolver, accountant, paymasterURL),
	}
}

// Accountant exposes the allowance accountant for read-side consumers.
func (s *Service) Accountant() *Accountant {
	return s.accountant
}

// Restore loads the persisted session. A partial session (permission
// without signature, or vice versa) restores as no active permission.
func (s *Service) Restore(ctx context.Context) error {
	sess, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Permission == nil {
		return nil
	}

	var permission Permission
	if err := json.Unmarshal(sess.Permission, &permission); err != nil {
		return fmt.Errorf("failed to decode stored permission: %w", err)
	}

	s.setActive(&permission, sess.Signature)
	go s.accountant.Refresh(context.Background())

	logger.Info("spend permission restored",
		zap.String("account", permission.Account.Hex()),
		zap.String("spender", permission.Spender.Hex()),
	)
	return nil
}

// CreateLinkedAccount provisions the sub-account with an initial grant of
// requestedAllowance ether per day and activates the returned permission.
func (s *Service) CreateLinkedAccount(ctx context.Context, requestedAllowance string) (*LinkedAccount, error) {
	linked, err := s.provisioner.CreateLinkedAccount(ctx, requestedAllowance)
	if err != nil {
		return nil, err
	}
	s.setActive(linked.Permission, linked.Signature)
	go s.accountant.Refresh(context.Background())
	return linked, nil
}

// SignPermission produces and activates a fresh allowance grant. Used
// when the user changes the requested allowance after linking.
func (s *Service) SignPermission(ctx context.Context, allowance *big.Int, period, start, end uint64, salt *big.Int, extraData []byte) (*Permission, error) {
	permission, sig, err := s.authorizer.Sign(ctx, allowance, period, start, end, salt, extraData)
	if err != nil {
		return nil, err
	}
	s.setActive(permission, sig)
	go s.accountant.Refresh(context.Background())
	return permission, nil
}

// Execute runs extraCalls as a delegated batch spending valueWei against
// the active permission. See Executor.Execute for the recovery contract.
func (s *Service) Execute(ctx context.Context, extraCalls []Call, valueWei *big.Int) (string, error) {
	s.mu.Lock()
	permission := s.active
	signature := s.signature
	s.mu.Unlock()
	return s.executor.Execute(ctx, permission, signature, extraCalls, valueWei)
}

// Refresh re-reads the on-chain accounting for the active permission.
func (s *Service) Refresh(ctx context.Context) {
	s.accountant.Refresh(ctx)
}

// Remaining returns the cached remaining allowance in wei.
func (s *Service) Remaining() (*big.Int, bool) {
	return s.accountant.Remaining()
}

// Permission returns the active permission and its signature.
func (s *Service) Permission() (*Permission, hexutil.Bytes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.signature
}

// SetSignerKind switches the signer backend. A switch wipes all persisted
// and in-memory linking state: permissions signed under the previous
// signer cannot be exercised by the new one.
func (s *Service) SetSignerKind(kind signer.Kind) error {
	previous := s.resolver.Kind()
	if err := s.resolver.SetKind(kind); err != nil {
		return err
	}
	if previous != kind {
		s.clearActive()
	}
	return nil
}

// Disconnect tears down the wallet connection and clears every piece of
// linking state together: addresses, permission, signature, accounting
// caches, persisted keys and cached signer material.
func (s *Service) Disconnect(ctx context.Context) error {
	err := s.conn.Disconnect(ctx)

	s.clearActive()
	if wipeErr := s.store.Wipe(); wipeErr != nil {
		logger.Error("failed to wipe session store on disconnect", zap.Error(wipeErr))
		if err == nil {
			err = wipeErr
		}
	}
	s.resolver.Invalidate()
	return err
}

func (s *Service) setActive(permission *Permission, signature hexutil.Bytes) {
	s.mu.Lock()
	s.active = permission
	s.signature = signature
	s.mu.Unlock()
	s.accountant.SetPermission(permission)
}

func (s *Service) clearActive() {
	s.mu.Lock()
	s.active = nil
	s.signature = nil
	s.mu.Unlock()
	s.accountant.Clear()
}
