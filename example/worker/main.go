package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"eventpipe/pkg/event"
	worker "eventpipe/pkg/worker"

	_ "github.com/lib/pq"
)

type retryOnce struct{}

type attemptKey struct{}

type attempts struct {
	count int
}

func (retryOnce) OnError(ctx context.Context, h *event.Handle, err error) worker.RetryDecision {
	if h == nil {
		return worker.RetryDecision{Retry: false, Nack: true}
	}
	if value := ctx.Value(attemptKey{}); value != nil {
		if state, ok := value.(*attempts); ok && state.count > 0 {
			return worker.RetryDecision{Retry: false, Nack: false}
		}
		if state, ok := value.(*attempts); ok {
			state.count++
		}
	}
	return worker.RetryDecision{Retry: true, Nack: true}
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to app config")
	driver := flag.String("driver", "", "Override subscriber driver (amqp|nats|kafka|sql|gochannel)")
	flag.Parse()

	log.SetPrefix("eventpipe/worker-example ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	subCfg, err := worker.LoadSubscriberConfig(*configPath)
	if err != nil {
		log.Fatalf("load subscriber config: %v", err)
	}
	if *driver != "" {
		subCfg.Driver = *driver
		subCfg.Drivers = nil
	}

	topics, err := worker.LoadTopicsFromConfig(*configPath)
	if err != nil {
		log.Fatalf("load topics: %v", err)
	}
	if len(topics) == 0 {
		log.Fatal("no alert topics in config: add rules with emit targets")
	}

	sub, err := worker.BuildSubscriber(subCfg)
	if err != nil {
		log.Fatalf("subscriber: %v", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Printf("subscriber close: %v", err)
		}
	}()

	wk := worker.New(
		worker.WithSubscriber(sub),
		worker.WithTopics(topics...),
		worker.WithConcurrency(5),
		worker.WithRetry(retryOnce{}),
		worker.WithListener(worker.Listener{
			OnStart: func(ctx context.Context) { log.Println("worker started") },
			OnExit:  func(ctx context.Context) { log.Println("worker stopped") },
			OnError: func(ctx context.Context, h *event.Handle, err error) {
				log.Printf("worker error: %v", err)
			},
			OnMessageFinish: func(ctx context.Context, h *event.Handle, err error) {
				if h == nil {
					return
				}
				log.Printf("finished topic=%s decoded=%v err=%v", worker.Topic(h), h.IsDecoded(), err)
			},
		}),
	)

	for _, topic := range topics {
		wk.HandleTopic(topic, func(ctx context.Context, h *event.Handle) error {
			doc := h.Document()
			source, _ := doc.Lookup("eventpipe.source")
			rule, _ := doc.Lookup("eventpipe.rule")
			log.Printf("alert topic=%s source=%v rule=%v", worker.Topic(h), source, rule)

			if driver := worker.Metadata(h)["driver"]; driver != "" {
				log.Printf("driver=%s topic=%s", driver, worker.Topic(h))
			}
			return nil
		})
	}

	exampleCtx := context.WithValue(ctx, attemptKey{}, &attempts{})
	if err := wk.Run(exampleCtx); err != nil {
		log.Fatal(err)
	}
}
