package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/world-in-progress/surfpool/caller"
	"github.com/world-in-progress/surfpool/config"
	"github.com/world-in-progress/surfpool/core/logger"
	"github.com/world-in-progress/surfpool/core/queue"
	"github.com/world-in-progress/surfpool/core/threading"
	"github.com/world-in-progress/surfpool/db"
	"github.com/world-in-progress/surfpool/db/mongo"
	"github.com/world-in-progress/surfpool/health"
	"github.com/world-in-progress/surfpool/metrics"
	"github.com/world-in-progress/surfpool/pool"
	"go.uber.org/multierr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		logger.Fatal("surfpool: %v", err)
	}
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("surfpool", pflag.ContinueOnError)
	flags.String("config", "", "config file (yaml, toml, json)")
	flags.Int("size", 4, "number of clients in the pool (1-100)")
	flags.Bool("pre-connect", false, "establish every connection before fetching")
	flags.String("health-check", "", "URL used for pre-connect, keepalive and /healthz")
	flags.Duration("keepalive", 0, "interval between keepalive health checks, 0 disables")
	flags.Duration("timeout", 30*time.Second, "timeout of every request")
	flags.String("listen", "", "address serving /healthz, /stats and /metrics")
	flags.Int("concurrency", 0, "concurrent fetches, defaults to the pool size")
	flags.String("log-level", "info", "log level")
	flags.String("store", "memory", "probe store: memory or mongo")
	return flags
}

// bindFlags maps command line flags onto config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"pool.size":             "size",
		"pool.pre_connect":      "pre-connect",
		"pool.health_check.url": "health-check",
		"pool.keepalive":        "keepalive",
		"pool.timeout":          "timeout",
		"server.listen":         "listen",
		"log.level":             "log-level",
		"store.kind":            "store",
	}
	var err error
	for key, name := range bindings {
		err = multierr.Append(err, v.BindPFlag(key, flags.Lookup(name)))
	}
	return err
}

func loadConfig(args []string) (*viper.Viper, *config.PoolConfig, []string, int, error) {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, nil, nil, 0, err
	}

	v := viper.New()
	if file, _ := flags.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("surfpool")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/surfpool")
	}
	if err := bindFlags(v, flags); err != nil {
		return nil, nil, nil, 0, err
	}

	cfg, err := config.LoadPoolConfig(v)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	concurrency, _ := flags.GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Size
	}
	return v, cfg, flags.Args(), concurrency, nil
}

func newBuilder(cfg *config.PoolConfig) (*pool.Builder, error) {
	b, err := pool.NewBuilder(cfg.Size)
	if err != nil {
		return nil, err
	}
	b.Name(cfg.Name).
		PreConnect(cfg.PreConnect).
		Timeout(cfg.Timeout).
		KeepaliveInterval(cfg.KeepaliveInterval)
	if cfg.HealthCheck != nil {
		b.HealthCheck(cfg.HealthCheck)
	}
	return b, nil
}

func openStore(ctx context.Context, v *viper.Viper, kind string) (db.ProbeRepository, func(), error) {
	switch kind {
	case "", "memory":
		return db.NewMemoryRepository(0), func() {}, nil
	case "mongo":
		client, err := mongo.Connect(ctx, config.LoadMongoConfig(v), 30*time.Second)
		if err != nil {
			return nil, nil, err
		}
		repo := mongo.NewProbeRepository(client)
		if err := repo.EnsureIndexes(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return repo, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}

func watchLogLevel(v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		level := v.GetString("log.level")
		if err := logger.SetLevel(level); err != nil {
			logger.Warn("ignoring log level %q from %s: %v", level, e.Name, err)
			return
		}
		logger.Info("log level set to %s", level)
	})
	v.WatchConfig()
}

func run(ctx context.Context, args []string) error {
	v, cfg, urls, concurrency, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	watchLogLevel(v)

	store, closeStore, err := openStore(ctx, v, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	p := builder.
		Metrics(metrics.NewPrometheusMetrics(registry, cfg.Name)).
		Recorder(db.NewProbeRecorder(store)).
		Build(ctx)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("failed to close pool: %v", err)
		}
	}()

	var srv *http.Server
	if cfg.Listen != "" {
		mux := http.NewServeMux()
		health.New(p, cfg.Timeout).RegisterRoutes(mux)
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		threading.GoTagged("health-server", func() {
			logger.Info("serving health on %s", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("health server stopped: %v", err)
			}
		})
	}

	if len(urls) > 0 {
		total, failed := fetchAll(ctx, p, urls, concurrency)
		logger.WithFields(logger.Fields{"total": total, "failed": failed}).Info("fetch done")
	}

	if srv != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

// fetchConsumer fetches one URL per message through a pool handler.
type fetchConsumer struct {
	ctx  context.Context
	pool *pool.Pool
}

func (c *fetchConsumer) Consume(url string) error {
	h, err := c.pool.GetHandler(c.ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	resp, err := h.Execute(c.ctx, caller.Get(url))
	if err != nil {
		return err
	}
	logger.WithFields(logger.Fields{
		"url":     url,
		"slot":    h.Slot(),
		"status":  resp.StatusCode,
		"bytes":   len(resp.Body),
		"latency": resp.Latency.String(),
	}).Info("fetched")
	return nil
}

func (c *fetchConsumer) OnEvent(any) {}

// fetchAll fans urls out to concurrency consumers sharing p.
func fetchAll(ctx context.Context, p *pool.Pool, urls []string, concurrency int) (total int64, failed int64) {
	producer := queue.NewSliceProducer(urls)
	q := queue.NewQueue(
		"fetch",
		func() (queue.Producer[string], error) {
			return producer, nil
		},
		func() (queue.Consumer[string], error) {
			return &fetchConsumer{ctx: ctx, pool: p}, nil
		},
	)
	q.SetNumProducer(1)
	q.SetNumConsumer(concurrency)

	stopOnCancel := context.AfterFunc(ctx, q.Stop)
	defer stopOnCancel()

	q.Start()
	return q.Consumed()
}
