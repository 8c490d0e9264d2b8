package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonberrylabs/rpncalc/pkg/api"
	grpcapi "github.com/lemonberrylabs/rpncalc/pkg/api/grpc"
	"github.com/lemonberrylabs/rpncalc/pkg/store"
	"github.com/lemonberrylabs/rpncalc/web"
	"github.com/spf13/cobra"
)

type serveConfig struct {
	addr       string
	grpcAddr   string
	batchesDir string
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator over REST, gRPC and a web UI",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("batches-dir", "", "Directory of batch YAML/JSON files to watch (env BATCHES_DIR)")
	return cmd
}

// loadServeConfig resolves flags over environment variables over defaults.
func loadServeConfig(cmd *cobra.Command) serveConfig {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	batchesDir := os.Getenv("BATCHES_DIR")
	if v, _ := cmd.Flags().GetString("batches-dir"); v != "" {
		batchesDir = v
	}

	return serveConfig{
		addr:       fmt.Sprintf("%s:%s", host, port),
		grpcAddr:   fmt.Sprintf("%s:%s", host, grpcPort),
		batchesDir: batchesDir,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadServeConfig(cmd)

	s := store.New()
	server := api.New(s)

	if cfg.batchesDir != "" {
		log.Printf("Watching batches directory: %s", cfg.batchesDir)
		if err := server.WatchDir(cfg.batchesDir); err != nil {
			log.Printf("Warning: failed to watch batches directory: %v", err)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Warning: web UI disabled due to template error: %v", r)
			}
		}()
		web.New(s).Register(server.App())
	}()

	grpcServer := grpcapi.New(s)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.grpcAddr)
		if err := grpcServer.Serve(cfg.grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down rpncalc...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("rpncalc listening on %s", cfg.addr)
	return server.Listen(cfg.addr)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
