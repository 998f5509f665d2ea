package service

import (
	"context"

	"zkpoker-client/internal/config"
	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/keystore"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/lobby"
	"zkpoker-client/internal/service/session"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Container struct {
	Signer   common.Address
	Keys     *keystore.Service
	Lobby    *lobby.Service
	Sessions *session.Manager
}

func NewContainer(db *gorm.DB, rdb *redis.Client, dialer ledger.Dialer, signer common.Address, gw engine.Gateway, cfg *config.Config) *Container {
	keys := keystore.NewService(db, gw)

	var cache ledger.Cache
	if rdb != nil {
		cache = ledger.NewRedisCache(rdb)
	}

	return &Container{
		Signer: signer,
		Keys:   keys,
		Lobby: lobby.NewService(dialer, keys, lobby.Config{
			RevealVerifier: common.HexToAddress(cfg.Chain.RevealVerifier),
			Signer:         signer,
		}),
		Sessions: session.NewManager(dialer, session.Deps{
			Engine: gw,
			Keys:   keys,
			Cache:  cache,
			Reader: ledger.ReaderConfig{
				Interval: cfg.Poll.Interval,
				CacheTTL: cfg.Poll.CacheTTL,
			},
			Tick: cfg.Clock.Tick,
		}),
	}
}

// Start makes sure the signer has a key before any game needs it.
func (c *Container) Start(ctx context.Context) error {
	c.Sessions.Start(ctx)
	if c.Signer == (common.Address{}) {
		logger.Log.Warn("no signing key configured, running read-only")
		return nil
	}
	key, err := c.Keys.GetKey(ctx, c.Signer)
	if err != nil {
		return err
	}
	logger.Log.Info("player key ready",
		zap.String("address", c.Signer.Hex()),
		zap.String("pk", string(key.PK)),
	)
	return nil
}
