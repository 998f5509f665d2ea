// Package keystore caches one engine key pair per signing address.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/model"
	"zkpoker-client/internal/service/engine"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	engine engine.Gateway

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]engine.Key
}

func NewService(db *gorm.DB, gw engine.Gateway) *Service {
	return &Service{
		db:     db,
		engine: gw,
		cache:  make(map[string]engine.Key),
	}
}

func addressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// GetKey returns the stored key for addr, generating and storing one on first use.
// Concurrent first uses converge on whichever row was stored first.
func (s *Service) GetKey(ctx context.Context, addr common.Address) (engine.Key, error) {
	if addr == (common.Address{}) {
		return engine.Key{}, appErr.ErrWalletNotConnected
	}
	id := addressKey(addr)

	s.mu.RLock()
	key, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	v, err, _ := s.group.Do(id, func() (interface{}, error) {
		return s.loadOrCreate(ctx, id)
	})
	if err != nil {
		return engine.Key{}, err
	}
	key = v.(engine.Key)

	s.mu.Lock()
	s.cache[id] = key
	s.mu.Unlock()
	return key, nil
}

// Lookup never generates.
func (s *Service) Lookup(ctx context.Context, addr common.Address) (engine.Key, error) {
	id := addressKey(addr)

	s.mu.RLock()
	key, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	row, err := s.find(ctx, id)
	if err != nil {
		return engine.Key{}, err
	}
	if row == nil {
		return engine.Key{}, appErr.ErrKeyNotFound
	}
	return toKey(*row), nil
}

// PublicKey returns only the shareable half of the key.
func (s *Service) PublicKey(ctx context.Context, addr common.Address) (cards.Point, error) {
	key, err := s.GetKey(ctx, addr)
	if err != nil {
		return cards.Point{}, err
	}
	return key.PKXY, nil
}

func (s *Service) loadOrCreate(ctx context.Context, id string) (engine.Key, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return engine.Key{}, err
	}
	if row != nil {
		return toKey(*row), nil
	}

	generated, err := s.engine.GenerateKey(ctx)
	if err != nil {
		return engine.Key{}, err
	}

	candidate := model.PlayerKey{
		Address:    id,
		SecretKey:  string(generated.SK),
		PublicKey:  string(generated.PK),
		PublicKeyX: string(generated.PKXY[0]),
		PublicKeyY: string(generated.PKXY[1]),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return engine.Key{}, fmt.Errorf("store key: %w", err)
	}

	stored, err := s.find(ctx, id)
	if err != nil {
		return engine.Key{}, err
	}
	if stored == nil {
		return engine.Key{}, fmt.Errorf("store key: row for %s missing after insert", id)
	}
	if stored.SecretKey != candidate.SecretKey {
		logger.Log.Info("key already stored by another writer", zap.String("address", id))
	} else {
		logger.Log.Info("generated player key", zap.String("address", id))
	}
	return toKey(*stored), nil
}

func (s *Service) find(ctx context.Context, id string) (*model.PlayerKey, error) {
	var row model.PlayerKey
	err := s.db.WithContext(ctx).Where("address = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func toKey(row model.PlayerKey) engine.Key {
	return engine.Key{
		SK:   cards.Hex(row.SecretKey),
		PK:   cards.Hex(row.PublicKey),
		PKXY: cards.Point{cards.Hex(row.PublicKeyX), cards.Hex(row.PublicKeyY)},
	}
}
