package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/httpapi"
	"github.com/aretw0/intake/pkg/adapters/memory"
	redisadapter "github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stateless HTTP server",
	Long:  `Starts the intake engine in server mode, exposing turn processing as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		sessionTTL, _ := cmd.Flags().GetDuration("session-ttl")

		logger := newLogger(cmd)
		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
		engine := newEngine(cmd, intake.WithTraceHooks(metrics.Hooks()))

		var store ports.StateStore
		sessionOpts := []session.Option{session.WithLogger(logger)}
		if redisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: redisAddr})
			defer client.Close()
			store = redisadapter.NewFromClient(client, redisadapter.WithTTL(sessionTTL))
			sessionOpts = append(sessionOpts, session.WithLocker(redisadapter.NewLocker(client, "intake:lock:")))
			logger.Info("using redis session store", "addr", redisAddr)
		} else {
			store = memory.NewStore()
		}
		sessions := session.NewManager(store, sessionOpts...)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: httpapi.NewHandler(engine, sessions, logger),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting intake server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Intake server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for session persistence (default: in-memory)")
	serveCmd.Flags().Duration("session-ttl", 2*time.Hour, "Session expiry when using redis")
}
