// cmd/web/main.go
//
// Verge – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Bootstrap console logging so config loading is observable.
//
//  2. Load layered configuration (.env → conf/global.yaml → VERGE_ env),
//     resolving any vault: secret references.
//
//  3. Start the daily rotating logger (tees to console in a TTY).
//
//  4. Open the key-value backend named by storage.driver.
//
//  5. Open the GeoLite2 database when configured; capture metadata
//     degrades gracefully without it.
//
//  6. Wire registries, the deploy orchestrator, the voucher workflow,
//     the resolver cache, and the rate limiter, then bind them to HTTP.
//
//  7. Serve until SIGINT/SIGTERM, then drain with a shutdown grace
//     period.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/capture"
	"github.com/yanizio/verge/internal/config"
	"github.com/yanizio/verge/internal/deploy"
	"github.com/yanizio/verge/internal/kv"
	"github.com/yanizio/verge/internal/logger"
	"github.com/yanizio/verge/internal/proxy"
	"github.com/yanizio/verge/internal/ratelimit"
	"github.com/yanizio/verge/internal/requestinfo"
	"github.com/yanizio/verge/internal/server"
	"github.com/yanizio/verge/internal/site"
	"github.com/yanizio/verge/internal/template"
	"github.com/yanizio/verge/internal/tenant"
	"github.com/yanizio/verge/internal/voucher"
	"github.com/yanizio/verge/internal/web"
	"github.com/yanizio/verge/internal/webhook"
)

const shutdownGrace = 15 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx := context.Background()
	tee := runningInTTY()

	//
	// ── 1.  Bootstrap logging + configuration ───────────────────────────
	//
	if tee {
		zap.ReplaceGlobals(zap.Must(zap.NewDevelopment()))
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, tee)
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	//
	// ── 2.  Key-value backend ───────────────────────────────────────────
	//
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logOut.Fatalw("open store", "driver", cfg.Storage.Driver, "err", err)
	}
	defer closeStore()
	logOut.Infow("store online", "driver", cfg.Storage.Driver)

	//
	// ── 3.  Geo database (optional) ─────────────────────────────────────
	//
	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			logOut.Warnw("geo database unavailable, captures degrade",
				"path", cfg.Geo.DBPath, "err", err)
		} else {
			logOut.Infow("geo database online", "path", cfg.Geo.DBPath)
		}
	}

	//
	// ── 4.  Domain wiring ───────────────────────────────────────────────
	//
	limits := cfg.PlanLimits()
	locks := tenant.NewKeyedMutex()

	tenants := tenant.NewRegistry(store, limits)
	sites := site.NewRepository(store)
	resolver := site.NewResolver(sites, site.FreshTTL, site.IdleTTL, site.MaxEntries)
	defer resolver.Close()
	templates := template.NewRegistry(store)
	captures := capture.NewStore(store)
	claims := voucher.NewStore(store)

	deployer := deploy.New(sites, templates, tenants, resolver, locks, limits,
		cfg.Domain.Root, cfg.Domain.InjectionScriptURL)
	workflow := voucher.NewWorkflow(claims, tenants, locks, limits)

	handler := web.NewServer(cfg, web.Deps{
		Tenants:   tenants,
		Locks:     locks,
		Sites:     sites,
		Resolver:  resolver,
		Templates: templates,
		Captures:  captures,
		Vouchers:  claims,
		Workflow:  workflow,
		Deployer:  deployer,
		Forwarder: proxy.New(cfg.Proxy.Timeout()),
		Limiter:   ratelimit.New(store),
		Notifier:  webhook.New(),
	}).Handler()

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, handler)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "domain", cfg.Domain.Root)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalw("serve", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logOut.Infow("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Errorw("shutdown incomplete", "err", err)
	}
	logOut.Infow("bye")
}

// openStore builds the backend named by storage.driver and returns it
// with a close function.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "redis":
		r, err := kv.NewRedis(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil

	case "mysql":
		m, err := kv.NewMySQL(cfg.Storage.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil

	default: // "memory", validated at load time
		return kv.NewMemory(), func() {}, nil
	}
}
