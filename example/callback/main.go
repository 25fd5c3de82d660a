package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/BCIDriver/Nurobuckle/pkg/nurobuckle"
)

func main() {
	flow, err := nurobuckle.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readings := func(batch []nurobuckle.Reading) error {
		for _, r := range batch {
			fmt.Printf("%s score=%s status=%s\n", r.Timestamp.Format(time.RFC3339Nano), r.Score, r.Status)
		}
		return nil
	}
	alerts := func(res *nurobuckle.AlertResult) {
		fmt.Printf("alert episode=%d delivered=%d failed=%v\n", res.Alert.Episode, res.Delivered(), res.Failed())
		fmt.Println(res.Message)
	}

	err = flow.Run(ctx,
		nurobuckle.StreamOutCallback("stdout", readings),
		nurobuckle.StreamOutAlerts(alerts),
	)
	if err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
