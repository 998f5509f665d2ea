package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"zkpoker-client/internal/api"
	"zkpoker-client/internal/config"
	"zkpoker-client/internal/repo"
	"zkpoker-client/internal/service"
	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/keystore"
	"zkpoker-client/internal/service/ledger/evm"
	pkgAuth "zkpoker-client/pkg/auth"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "zkpoker",
		Short:         "Mental-poker protocol orchestrator for one player",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.LoadConfig(configPath)
			logger.InitLogger(config.GlobalConfig.Server.Mode)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	rootCmd.AddCommand(
		serveCmd(),
		tokenCmd(),
		keyCmd(),
	)
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator and the local UI bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			defer logger.Log.Sync()

			cfg := config.GlobalConfig
			logger.Log.Info("Starting orchestrator...", zap.String("mode", cfg.Server.Mode))

			// 1. Storage
			repo.InitDB()
			repo.InitRedis()

			// 2. Ledger & engine
			chain, err := evm.Dial(ctx, cfg.Chain)
			if err != nil {
				return fmt.Errorf("dial chain: %w", err)
			}
			defer chain.Close()
			gw := engine.NewClient(cfg.Engine.BaseURL, cfg.Engine.Timeout)

			// 3. Services
			services := service.NewContainer(repo.DB, repo.RDB, chain, chain.Signer(), gw, cfg)
			if err := services.Start(ctx); err != nil {
				return fmt.Errorf("start services: %w", err)
			}

			// 4. Router
			if cfg.Server.Mode == "release" {
				gin.SetMode(gin.ReleaseMode)
			}
			r := gin.Default()
			api.RegisterRoutes(r, services)

			// 5. Serve
			addr := fmt.Sprintf("127.0.0.1:%s", cfg.Server.Port)
			logger.Log.Info("Bridge listening", zap.String("addr", addr))
			errCh := make(chan error, 1)
			go func() { errCh <- r.Run(addr) }()

			select {
			case <-ctx.Done():
				logger.Log.Info("Shutting down")
				return nil
			case err := <-errCh:
				return err
			}
		},
	}
}

func tokenCmd() *cobra.Command {
	var spectator bool
	cmd := &cobra.Command{
		Use:   "token [address]",
		Short: "Issue a bridge token for the UI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) == 1 {
				if !common.IsHexAddress(args[0]) {
					return fmt.Errorf("invalid address %q", args[0])
				}
				address = common.HexToAddress(args[0]).Hex()
			} else {
				signer, err := evm.SignerAddress(config.GlobalConfig.Chain.PrivateKey)
				if err != nil {
					return err
				}
				address = signer.Hex()
			}

			issue := pkgAuth.GeneratePlayerToken
			if spectator {
				issue = pkgAuth.GenerateSpectatorToken
			}
			token, err := issue(address)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().BoolVar(&spectator, "spectator", false, "issue a read-only token")
	return cmd
}

func keyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key",
		Short: "Print the signer's engine public key, generating it on first use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GlobalConfig
			signer, err := evm.SignerAddress(cfg.Chain.PrivateKey)
			if err != nil {
				return err
			}
			repo.InitDB()
			keys := keystore.NewService(repo.DB, engine.NewClient(cfg.Engine.BaseURL, cfg.Engine.Timeout))
			pk, err := keys.PublicKey(cmd.Context(), signer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address: %s\npk: [%s, %s]\n", signer.Hex(), pk[0], pk[1])
			return nil
		},
	}
}
