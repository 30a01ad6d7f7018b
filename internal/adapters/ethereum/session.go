package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/landledger/landledger/internal/core/domain"
)

// ErrNotConnected is returned by calls made outside Connect/Disconnect.
var ErrNotConnected = errors.New("ledger session not connected")

// Backend is the part of an Ethereum node the session needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// DialFunc opens a Backend for an RPC URL.
type DialFunc func(ctx context.Context, url string) (Backend, error)

func dialEthclient(ctx context.Context, url string) (Backend, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SessionConfig describes the node and signing key.
type SessionConfig struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string // hex, optional; read-only without it
}

// Session is an explicit wallet connection: a node client plus an optional
// signing key. It is safe for concurrent use.
type Session struct {
	cfg  SessionConfig
	dial DialFunc

	mu      sync.RWMutex
	backend Backend
	key     *ecdsa.PrivateKey
	account common.Address
	chainID *big.Int
}

// NewSession creates a disconnected session. A nil dial uses ethclient.
func NewSession(cfg SessionConfig, dial DialFunc) *Session {
	if dial == nil {
		dial = dialEthclient
	}
	return &Session{cfg: cfg, dial: dial}
}

// Connect dials the node, verifies the chain ID and loads the signing key.
// Connecting an already connected session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		return nil
	}

	var key *ecdsa.PrivateKey
	var account common.Address
	if pk := strings.TrimPrefix(strings.TrimSpace(s.cfg.PrivateKey), "0x"); pk != "" {
		k, err := crypto.HexToECDSA(pk)
		if err != nil {
			return fmt.Errorf("load private key: %w", err)
		}
		key, account = k, crypto.PubkeyToAddress(k.PublicKey)
	}

	backend, err := s.dial(ctx, s.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.RPCURL, err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return fmt.Errorf("chain id: %w", err)
	}
	if s.cfg.ChainID != 0 && chainID.Cmp(big.NewInt(s.cfg.ChainID)) != 0 {
		backend.Close()
		return fmt.Errorf("connected to chain %s, expected %d", chainID, s.cfg.ChainID)
	}

	s.backend, s.key, s.account, s.chainID = backend, key, account, chainID
	slog.InfoContext(ctx, "ledger session connected",
		"chain_id", fmt.Sprintf("0x%x", chainID), "account", s.accountLocked(), "writable", key != nil)
	return nil
}

// Disconnect closes the node client and forgets the key.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		s.backend.Close()
	}
	s.backend, s.key, s.account, s.chainID = nil, nil, common.Address{}, nil
}

// Connected reports whether Connect has succeeded.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend != nil
}

// Account returns the signing address, or "" when the session cannot sign.
func (s *Session) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountLocked()
}

func (s *Session) accountLocked() string {
	if s.key == nil {
		return ""
	}
	return s.account.Hex()
}

// ChainID returns the connected chain ID.
func (s *Session) ChainID() (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return nil, ErrNotConnected
	}
	return new(big.Int).Set(s.chainID), nil
}

// Ping asks the node for its chain ID.
func (s *Session) Ping(ctx context.Context) error {
	b, err := s.Backend()
	if err != nil {
		return err
	}
	_, err = b.ChainID(ctx)
	return err
}

// Backend returns the node client.
func (s *Session) Backend() (Backend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return nil, ErrNotConnected
	}
	return s.backend, nil
}

// Transactor returns signing options bound to ctx.
func (s *Session) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return nil, ErrNotConnected
	}
	if s.key == nil {
		return nil, domain.ErrWalletNotConnected
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
