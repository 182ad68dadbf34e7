package session

import (
	"encoding/json"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Durable per-profile keys. These survive restarts and are shared by every
// component that persists linking state; Wipe clears the whole namespace on
// disconnect.
const (
	keySignerKind          = "signer-kind"
	keyPermission          = "spend-permission"
	keyPermissionSignature = "spend-permission-signature"
	keyLocalSignerKey      = "local-signer-key"
	prefixRemoteSigner     = "remote-signer:"
)

// RemoteSigner is a previously provisioned custodial signer.
type RemoteSigner struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Session is the restorable linking state. Permission and Signature are
// only populated when both underlying keys are present: a permission
// without its signature is treated as no session at all, since the two
// are written as separate keys with no transaction across them.
type Session struct {
	SignerKind string
	Permission json.RawMessage
	Signature  []byte
}

// Store persists linking state across restarts. It is the durable-storage
// analog of a browser profile: a handful of fixed keys in a local
// key-value database.
type Store struct {
	db     *badgerdb.DB
	logger *zap.Logger
}

// Open opens (or creates) the store at dataPath.
func Open(dataPath string, logger *zap.Logger) (*Store, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve store path")
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open session store at %s", absPath)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close shuts the store down.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return data, nil
}

func (s *Store) set(key string, value []byte) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// SignerKind returns the cached signer kind, or "" when none was saved.
func (s *Store) SignerKind() (string, error) {
	data, err := s.get(keySignerKind)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetSignerKind caches the chosen signer kind.
func (s *Store) SetSignerKind(kind string) error {
	return s.set(keySignerKind, []byte(kind))
}

// RemoteSigner returns the cached custodial signer for kind, or nil when
// none was provisioned yet.
func (s *Store) RemoteSigner(kind string) (*RemoteSigner, error) {
	data, err := s.get(prefixRemoteSigner + kind)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var rs RemoteSigner
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal cached remote signer")
	}
	return &rs, nil
}

// SetRemoteSigner caches the identifier+address pair for a provisioned
// custodial signer.
func (s *Store) SetRemoteSigner(kind string, rs RemoteSigner) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal remote signer")
	}
	return s.set(prefixRemoteSigner+kind, data)
}

// LocalKey returns the serialized in-process signing key, or nil.
func (s *Store) LocalKey() ([]byte, error) {
	return s.get(keyLocalSignerKey)
}

// SetLocalKey persists the serialized in-process signing key.
func (s *Store) SetLocalKey(key []byte) error {
	return s.set(keyLocalSignerKey, key)
}

// SavePermission persists a signed spend permission. The permission and
// its signature are stored under separate keys; Load tolerates a partial
// write by reporting no session.
func (s *Store) SavePermission(permission, signature []byte) error {
	if err := s.set(keyPermission, permission); err != nil {
		return err
	}
	return s.set(keyPermissionSignature, signature)
}

// Load restores the persisted session. A missing signer kind is fine;
// a permission missing its signature (or vice versa) is reported as no
// active permission.
func (s *Store) Load() (*Session, error) {
	kind, err := s.SignerKind()
	if err != nil {
		return nil, err
	}

	sess := &Session{SignerKind: kind}

	perm, err := s.get(keyPermission)
	if err != nil {
		return nil, err
	}
	sig, err := s.get(keyPermissionSignature)
	if err != nil {
		return nil, err
	}
	if perm != nil && sig != nil {
		sess.Permission = perm
		sess.Signature = sig
	}

	return sess, nil
}

// Wipe deletes everything in the store. Used on disconnect and on
// signer-kind change, which both invalidate cached key material.
func (s *Store) Wipe() error {
	if err := s.db.DropAll(); err != nil {
		return errors.Wrap(err, "failed to wipe session store")
	}
	s.logger.Debug("session store wiped")
	return nil
}
