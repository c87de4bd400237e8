package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/xtding233/gacha-mint/internal/api"
	"github.com/xtding233/gacha-mint/internal/config"
	"github.com/xtding233/gacha-mint/internal/ledger"
	"github.com/xtding233/gacha-mint/internal/logging"
	"github.com/xtding233/gacha-mint/internal/redeem"
	"github.com/xtding233/gacha-mint/internal/wallet"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("grpc-addr", ":9090", "gRPC health listen address (empty disables)")
	cmd.Flags().String("env", "dev", "deployment environment label")
	cmd.Flags().String("log-file", "", "write rotated logs to this file instead of stdout")
	cmd.Flags().Float64("pull-rate", 10, "pull requests per minute per client")
	cmd.Flags().Int("pull-burst", 3, "pull request burst per client")
	cmd.Flags().Duration("confirm-delay", 2*time.Second, "memory ledger confirmation delay")
	cmd.Flags().Bool("trust-proxy", false, "take client addresses from X-Real-IP / X-Forwarded-For")
	cmd.Flags().Duration("drain-timeout", 0, "how long shutdown waits for running pulls (0 covers both confirmations)")
	for _, name := range []string{"addr", "grpc-addr", "env", "log-file", "pull-rate", "pull-burst", "confirm-delay", "trust-proxy", "drain-timeout"} {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func serve(ctx context.Context) error {
	logger, logs := logging.Setup("gacha", viper.GetString("env"), viper.GetString("log-file"))
	defer logs.Close()

	machine, err := config.LoadMachine(viper.GetString("config"))
	if err != nil {
		return err
	}
	// TODO: add a node-backed ledger.Client so preprod and mainnet can be served.
	if machine.Network != "memory" {
		return fmt.Errorf("no ledger client for network %q; set network: memory to run the in-process ledger", machine.Network)
	}
	led := ledger.NewMemoryLedger(machine.Slots, ledger.WithConfirmDelay(viper.GetDuration("confirm-delay")))

	orch, err := redeem.New(machine, led, redeem.WithLogger(logger))
	if err != nil {
		return err
	}
	limiter := api.NewRateLimiter(api.RateLimit{
		RequestsPerMinute: viper.GetFloat64("pull-rate"),
		Burst:             viper.GetInt("pull-burst"),
	})
	opts := []api.HandlerOption{
		api.WithDevLedger(led),
		api.WithRateLimiter(limiter),
		api.WithLogger(logger),
	}
	if viper.GetBool("trust-proxy") {
		opts = append(opts, api.WithTrustedProxy())
	}
	handler := api.NewHandler(orch, wallet.NewRegistry(), led, opts...)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              viper.GetString("addr"),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var gs *grpc.Server
	hs := health.NewServer()
	if grpcAddr := viper.GetString("grpc-addr"); grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		gs = grpc.NewServer()
		healthpb.RegisterHealthServer(gs, hs)
		reflection.Register(gs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			if err := gs.Serve(lis); err != nil {
				logger.Error("grpc server stopped", "error", err)
			}
		}()
		logger.Info("grpc health listening", "addr", grpcAddr)
	}

	drain := viper.GetDuration("drain-timeout")
	if drain <= 0 {
		drain = 2*machine.ConfirmTimeout + 10*time.Second
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown incomplete", "error", err)
		}
		// paid pulls that never minted need reconciling by hand
		for _, p := range orch.Drain(shutdownCtx) {
			logger.Error("pull abandoned at shutdown",
				"pull_id", p.PullID,
				"address", wallet.Short(p.Address),
				"payment_tx", p.PaymentTx)
		}
		if gs != nil {
			gs.GracefulStop()
		}
	}()

	logger.Info("gacha machine serving",
		"addr", srv.Addr,
		"network", machine.Network,
		"pull_cost", machine.PullCost.String(),
		"treasury", wallet.Short(machine.Treasury))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	logger.Info("gacha machine stopped")
	return nil
}
