package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dn42/regsynth/internal/config"
	"github.com/dn42/regsynth/internal/driver"
	"github.com/dn42/regsynth/internal/httpapi"
	"github.com/dn42/regsynth/internal/refresh"
)

func main() {
	configPath := flag.String("config", "regsynth.json", "Path to JSON config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("regsynthd: loading config: %v", err)
	}
	if *listen != "" {
		cfg.ListenAddress = *listen
	}

	logger := log.New(os.Stderr, "regsynthd: ", log.LstdFlags)

	var refresher refresh.Refresher
	if cfg.DoGitPull {
		refresher = &refresh.GitRefresher{RepoURL: cfg.GitRepoURL, LocalPath: cfg.GitRepoLocalPath}
	} else {
		refresher = refresh.NoopRefresher{}
	}

	paths := driver.Paths{
		Root:        cfg.GitRepoLocalPath,
		IPv4Route:   cfg.GitRepoIPv4RouteRelativePath,
		IPv6Route:   cfg.GitRepoIPv6RouteRelativePath,
		DNS:         cfg.GitRepoDNSRelativePath,
		IPv4Inetnum: cfg.GitRepoInetnumRelativePath,
		IPv6Inetnum: cfg.GitRepoInet6numRelativePath,
	}
	synthOpts := driver.SynthOptions{
		PrimaryMaster:    cfg.DNSPrimaryMaster,
		ResponsibleParty: cfg.DNSResponsibleParty,
	}
	interval := time.Duration(cfg.UpdateIntervalSeconds) * time.Second

	d := driver.New(paths, refresher, synthOpts, interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go d.Run(ctx)

	mux := httpapi.NewMux(d, httpapi.Options{
		ROAEndpoint:                 cfg.ROAEndpoint,
		DNSContentEndpointDirectory: cfg.DNSContentEndpointDirectory,
		RateLimiter:                 httpapi.NewRateLimiter(httpapi.DefaultRateLimiterConfig()),
	})

	srv := &http.Server{Addr: cfg.ListenAddress, Handler: mux}
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Printf("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http server shutdown: %v", err)
	}
}
