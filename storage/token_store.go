// Package storage keeps client state between runs in a local badger database.
package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"sendify-chat/domain"

	"github.com/dgraph-io/badger/v4"
)

var tokenKey = []byte("session:tokens")

type TokenStore struct {
	db  *badger.DB
	log *slog.Logger
}

func NewTokenStore(db *badger.DB, log *slog.Logger) *TokenStore {
	return &TokenStore{db: db, log: log}
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open token database %s: %w", dir, err)
	}
	return db, nil
}

// Load returns the saved pair, or an empty one if nothing was saved.
func (s *TokenStore) Load() (domain.TokenPair, error) {
	var tokens domain.TokenPair
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &tokens)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.TokenPair{}, nil
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("load tokens: %w", err)
	}
	return tokens, nil
}

func (s *TokenStore) Save(tokens domain.TokenPair) error {
	bytes, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tokenKey, bytes)
	})
}

func (s *TokenStore) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tokenKey)
	})
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	s.log.Debug("Tokens cleared")
	return nil
}
