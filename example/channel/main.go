package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/BCIDriver/Nurobuckle"
)

func main() {
	flow, err := nurobuckle.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := nurobuckle.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("lowest", batches)

	if err := flow.Run(ctx, nurobuckle.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

// fanoutWorker prints the lowest score of every persisted batch.
func fanoutWorker(name string, batches <-chan []nurobuckle.Reading) {
	for batch := range batches {
		low := batch[0]
		for _, r := range batch[1:] {
			if r.Score < low.Score {
				low = r
			}
		}
		fmt.Printf("[%s] %d readings, lowest %s at %s\n", name, len(batch), low.Score, low.Timestamp.Format(time.RFC3339))
	}
}
