package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/duskresolve/duskresolve/internal/adminapi"
	"github.com/duskresolve/duskresolve/internal/cache"
	"github.com/duskresolve/duskresolve/internal/config"
	"github.com/duskresolve/duskresolve/internal/logging"
	"github.com/duskresolve/duskresolve/internal/querylog"
	"github.com/duskresolve/duskresolve/internal/resolver"
	"github.com/duskresolve/duskresolve/internal/store"
	"github.com/duskresolve/duskresolve/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values.
type cliFlags struct {
	configPath string
	host       string
	port       int
	debug      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&f.host, "host", "", "Override DNS server bind host")
	flag.IntVar(&f.port, "port", 0, "Override DNS server bind port")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(config.ResolveConfigPath(flags.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
	})
	logger.Info("duskresolve starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"udp_workers", cfg.Server.UDPWorkers,
		"upstreams", cfg.Upstream.Servers,
	)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer st.Close()

	rdb := cache.NewClient(cache.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	answerCache := cache.New(rdb, logger)

	res := &resolver.Resolver{
		Store:     st,
		Cache:     answerCache,
		Forwarder: &resolver.Forwarder{Upstreams: cfg.Upstream.Servers},
		Logger:    logger,
	}

	handler := &transport.QueryHandler{
		Logger:   logger,
		Resolver: res,
		QueryLog: querylog.New(logger),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	dnsAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	udpSrv := &transport.UDPServer{Handler: handler, Workers: cfg.Server.UDPWorkers}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := udpSrv.Run(ctx, dnsAddr); err != nil && ctx.Err() == nil {
			logger.Error("UDP server error", "err", err)
			cancel()
		}
	}()

	tcpSrv := &transport.TCPServer{Handler: handler}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(ctx, dnsAddr); err != nil && ctx.Err() == nil {
			logger.Error("TCP server error", "err", err)
			cancel()
		}
	}()

	if cfg.DoH.Enabled {
		dohSrv := &transport.DoHServer{
			Handler:  handler,
			CertFile: cfg.DoH.CertFile,
			KeyFile:  cfg.DoH.KeyFile,
		}
		dohAddr := net.JoinHostPort(cfg.DoH.Host, strconv.Itoa(cfg.DoH.Port))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dohSrv.Run(ctx, dohAddr); err != nil && ctx.Err() == nil {
				logger.Error("DoH server error", "err", err)
				cancel()
			}
		}()
		logger.Info("DoH server starting", "addr", dohAddr)
	}

	var adminSrv *adminapi.Server
	if cfg.API.Enabled {
		adminAddr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
		adminSrv = adminapi.New(adminAddr, cfg.API.APIKey, st)
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveErr := adminSrv.ListenAndServe()
			if serveErr == nil || errors.Is(serveErr, http.ErrServerClosed) {
				return
			}
			logger.Error("admin API server error", "err", serveErr)
			cancel()
		}()
		logger.Info("admin API starting", "addr", adminAddr)
	}

	logger.Info("DNS server listening", "addr", dnsAddr)

	<-ctx.Done()
	logger.Info("shutting down")

	// udpSrv and tcpSrv stop themselves on ctx cancellation inside Run;
	// only the admin API needs an explicit graceful shutdown call.
	if adminSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = adminSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	wg.Wait()
	logger.Info("duskresolve stopped")
	return nil
}
