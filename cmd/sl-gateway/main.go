// Package main provides the entry point for sl-gateway.
//
// sl-gateway holds one Service Layer session and exposes the server's
// resources over a local HTTP endpoint, renewing the session as needed.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/yndnr/servicelayer-go/internal/infra/buildinfo"
	"github.com/yndnr/servicelayer-go/internal/infra/confloader"
	"github.com/yndnr/servicelayer-go/internal/infra/shutdown"
	"github.com/yndnr/servicelayer-go/internal/server/config"
	"github.com/yndnr/servicelayer-go/internal/server/httpserver"
	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/internal/telemetry/metric"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// startupLoginTimeout bounds the login attempted before serving.
const startupLoginTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile   = flag.String("config", "", "Path to configuration file")
		showVersion  = flag.Bool("version", false, "Show version information")
		sealPassword = flag.String("seal-password", "", "Read a password from stdin, seal it with this key file and print it")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("sl-gateway " + buildinfo.String())
		return nil
	}
	if *sealPassword != "" {
		return runSeal(*sealPassword, os.Stdin, os.Stdout)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting sl-gateway",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"servicelayer", cfg.ServiceLayer)

	metrics := metric.NewRegistry(true)

	client, err := servicelayer.New(cfg.ServiceLayer,
		servicelayer.WithLogger(log),
		servicelayer.WithMetrics(metrics),
		servicelayer.WithUserAgent(buildinfo.UserAgent("sl-gateway")),
	)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	loginCtx, cancel := context.WithTimeout(ctx, startupLoginTimeout)
	if err := client.CreateSession(loginCtx, servicelayer.Config{}); err != nil {
		// Serving continues; the next call or /ready retries the login.
		log.Error("initial login failed", "error", err)
	}
	cancel()

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Client:         client,
		Metrics:        metrics,
		Logger:         log,
		RateLimit:      cfg.Gateway.RateLimit,
		Burst:          cfg.Gateway.Burst,
		AllowList:      cfg.Gateway.AllowList,
		EnableAudit:    cfg.Gateway.Audit,
		MetricsEnabled: cfg.Gateway.MetricsEnabled,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		MaxBodyBytes:   cfg.Gateway.MaxBodyBytes,
	})
	httpServer := httpserver.New(cfg.Gateway.Addr, router)

	shutdownHandler := shutdown.NewHandler(15*time.Second, log)

	// Hooks run in reverse: stop serving, then end the session.
	shutdownHandler.OnShutdown("servicelayer logout", func(ctx context.Context) error {
		log.Info("logging out of service layer")
		return client.Logout(ctx)
	})
	shutdownHandler.OnShutdown("http server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	if *configFile != "" {
		r := &reloader{path: *configFile, current: cfg, client: client, log: log}
		watcher, err := confloader.NewWatcher(*configFile, func(string) { r.reload(ctx) },
			confloader.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config reload disabled", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.Gateway.Addr, "tls", cfg.Gateway.TLSCertFile != "")

		var err error
		if cfg.Gateway.TLSCertFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Gateway.TLSCertFile, cfg.Gateway.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	log.Info("gateway started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
	}
	log.Info("gateway stopped gracefully")
	return nil
}

// loadConfig loads and verifies the configuration.
func loadConfig(path string) (*config.GatewayConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// sessionClient is what a reload needs from the client.
type sessionClient interface {
	Replace(cfg servicelayer.Config) error
	CreateSession(ctx context.Context, partial servicelayer.Config) error
}

// reloader applies config file changes: log level at once, Service Layer
// settings by replacing the client config and logging in. Gateway settings
// need a restart.
type reloader struct {
	path   string
	client sessionClient
	log    logger.Logger

	mu      sync.Mutex
	current *config.GatewayConfig
}

func (r *reloader) reload(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := loadConfig(r.path)
	if err != nil {
		r.log.Error("config reload rejected", "error", err)
		return
	}

	if next.Log.Level != r.current.Log.Level {
		logger.SetLevel(next.Log.Level)
		r.log.Info("log level changed", "level", next.Log.Level)
	}
	if !reflect.DeepEqual(next.Gateway, r.current.Gateway) {
		r.log.Warn("gateway settings changed; restart to apply them")
	}

	if !reflect.DeepEqual(next.ServiceLayer, r.current.ServiceLayer) {
		// Fields missing from the file revert to their defaults.
		if err := r.client.Replace(next.ServiceLayer); err != nil {
			r.log.Error("reloaded servicelayer config rejected", "error", err)
			return
		}
		loginCtx, cancel := context.WithTimeout(ctx, startupLoginTimeout)
		defer cancel()
		if err := r.client.CreateSession(loginCtx, servicelayer.Config{}); err != nil {
			r.log.Error("login with reloaded config failed", "error", err)
			return
		}
		r.log.Info("logged in with reloaded config", "servicelayer", next.ServiceLayer)
	}

	r.current = next
}

// runSeal reads one password and prints it sealed for
// servicelayer.password, creating keyFile when needed.
func runSeal(keyFile string, in *os.File, out io.Writer) error {
	var password string
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(b)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("empty password")
	}

	sealed, err := config.SealPassword(keyFile, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, sealed)
	return nil
}
