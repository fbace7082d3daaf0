package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/siwx/adapters/events"
	"github.com/layer-3/siwx/adapters/store"
	"github.com/layer-3/siwx/adapters/tokenizer"
	"github.com/layer-3/siwx/adapters/verifier"
	"github.com/layer-3/siwx/config"
	"github.com/layer-3/siwx/ports"
	"github.com/layer-3/siwx/service"
	transport "github.com/layer-3/siwx/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type backingStore interface {
	ports.ChallengeStore
	ports.MappingStore
	ports.TokenStore
}

func main() {
	configPath := flag.String("config", os.Getenv("SIWX_CONFIG"), "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(*configPath, logger); err != nil {
		logger.Error("siwx stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	codec, err := cfg.Codec()
	if err != nil {
		return err
	}
	sigVerifier, err := verifier.ForCodec(codec)
	if err != nil {
		return err
	}

	// Access tokens do not survive a restart.
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	wmLogger := watermill.NewStdLogger(false, false)

	var (
		st        backingStore
		publisher message.Publisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		st = store.NewRedisStore(redisClient, strings.ToLower(codec.Chain()), nil)
		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no redis_url configured, state is kept in memory")
		st = store.NewMemoryStore(nil)
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := service.NewLoginService(service.Options{
		Codec:        codec,
		Challenges:   st,
		Mappings:     st,
		Tokens:       st,
		Verifier:     sigVerifier,
		Tokenizer:    tokenizer.NewJWTTokenizer(privateKey, cfg.Domain),
		Policy:       cfg,
		Events:       events.NewWatermillPublisher(publisher),
		Metrics:      service.NewMetrics(registry),
		Logger:       logger,
		Message:      cfg.MessageSettings(),
		Salt:         cfg.Salt,
		ChallengeTTL: cfg.SignInExpiresIn,
		SessionTTL:   cfg.SessionExpiresIn,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go service.NewPruner(svc, cfg.PruneInterval, logger).Run(ctx)

	router := transport.SetupRouter(svc, transport.RouterOptions{
		Logger:   logger,
		Limiter:  transport.NewClientLimiter(cfg.RateLimit, cfg.RateBurst),
		Gatherer: registry,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "scheme", cfg.Scheme, "domain", cfg.Domain)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
