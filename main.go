package main

import (
	"context"
	"expvar"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"eventpipe/intake"
	"eventpipe/internal"
	"eventpipe/pkg/event"
	"eventpipe/pkg/pipeline"
	"eventpipe/pkg/storage"
	"eventpipe/pkg/storage/alerts"
	"eventpipe/pkg/worker"
)

func main() {
	logger := internal.NewLogger("server")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ruleEngine, err := internal.NewRuleEngine(internal.RulesConfig{
		Rules:  config.Rules,
		Strict: config.RulesStrict,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("compile rules: %v", err)
	}

	// When the gochannel driver is in play, the publisher and the pipeline
	// worker have to share one transport instance or messages go nowhere.
	var shared *gochannel.GoChannel
	if hasDriver(config.Watermill, "gochannel") {
		shared = gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: config.Watermill.GoChannel.OutputChannelBuffer,
				Persistent:          config.Watermill.GoChannel.Persistent,
			},
			watermill.NewStdLogger(false, false),
		)
		internal.RegisterPublisherDriver("gochannel", func(internal.WatermillConfig, watermill.LoggerAdapter) (message.Publisher, func() error, error) {
			return shared, nil, nil
		})
		defer shared.Close()
	}

	publisher, err := internal.NewPublisher(config.Watermill)
	if err != nil {
		logger.Fatalf("publisher: %v", err)
	}
	defer publisher.Close()

	var subscriber message.Subscriber = shared
	if shared == nil {
		subCfg, err := worker.LoadSubscriberConfig(*configPath)
		if err != nil {
			logger.Fatalf("subscriber config: %v", err)
		}
		subscriber, err = worker.BuildSubscriber(subCfg)
		if err != nil {
			logger.Fatalf("subscriber: %v", err)
		}
	}

	var store storage.AlertStore
	if config.Storage.Enabled {
		alertStore, err := alerts.Open(alerts.Config{
			Driver:      config.Storage.Driver,
			DSN:         config.Storage.DSN,
			Dialect:     config.Storage.Dialect,
			Table:       config.Storage.Table,
			AutoMigrate: config.Storage.AutoMigrate,
		})
		if err != nil {
			logger.Fatalf("alert store: %v", err)
		}
		defer alertStore.Close()
		store = alertStore
		logger.Printf("alert store enabled driver=%s table=%s", config.Storage.Driver, config.Storage.Table)
	}

	decode := pipeline.NewDecodeStage()
	decode.Register("", func(ctx context.Context, doc *event.Document) error {
		return nil
	})
	chain := pipeline.NewChain(logger,
		decode,
		pipeline.NewAnalyzeStage(ruleEngine),
		pipeline.NewOutputStage(publisher, store, logger),
	)

	wk := worker.New(
		worker.WithSubscriber(subscriber),
		worker.WithTopics(config.Pipeline.Topic),
		worker.WithConcurrency(config.Pipeline.Concurrency),
		worker.WithLogger(logger),
	)
	wk.HandleTopic(config.Pipeline.Topic, chain.Run)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan error, 1)
	go func() {
		logger.Printf("pipeline worker consuming %s", config.Pipeline.Topic)
		workerDone <- wk.Run(ctx)
	}()

	mux := http.NewServeMux()
	if config.Intake.Enabled {
		mux.Handle(config.Intake.Path, intake.NewHandler(config.Intake, publisher, config.Server.MaxBodyBytes, logger))
		logger.Printf("event intake enabled on %s topic=%s", config.Intake.Path, config.Intake.Topic)
	}
	if config.Server.MetricsEnabled {
		mux.Handle(config.Server.MetricsPath, expvar.Handler())
		logger.Printf("metrics enabled on %s", config.Server.MetricsPath)
	}

	var handler http.Handler = mux
	if config.Server.RateLimitRPS > 0 {
		handler = internal.NewRateLimitHandler(handler, config.Server.RateLimitRPS, config.Server.RateLimitBurst, time.Minute)
	}

	addr := ":" + strconv.Itoa(config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(config.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(config.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:       time.Duration(config.Server.IdleTimeoutMS) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(config.Server.ReadHeaderMS) * time.Millisecond,
	}

	go func() {
		logger.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	if err := <-workerDone; err != nil && err != context.Canceled {
		logger.Printf("worker: %v", err)
	}
}

func hasDriver(cfg internal.WatermillConfig, name string) bool {
	drivers := cfg.Drivers
	if len(drivers) == 0 && cfg.Driver != "" {
		drivers = []string{cfg.Driver}
	}
	if len(drivers) == 0 {
		return name == "gochannel"
	}
	for _, driver := range drivers {
		if strings.EqualFold(driver, name) {
			return true
		}
	}
	return false
}
