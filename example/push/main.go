// Command push feeds attention values from an existing source into the
// runtime. Here the source is a slow decline from alert to drowsy.
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
	cfg, err := nurobuckle.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	col := nurobuckle.NewPushCollector(16)
	rt, err := nurobuckle.NewRuntime(ctx, cfg,
		nurobuckle.WithCollector(col),
		nurobuckle.WithAlertHandler(func(res *nurobuckle.AlertResult) {
			fmt.Printf("alert sent to %d contacts\n", res.Delivered())
		}),
	)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	go func() {
		defer col.Stop()
		raw := 0.95
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for raw > 0.5 {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				if err := col.PushValue(now, raw); err != nil {
					log.Printf("push: %v", err)
				}
				raw -= 0.02
			}
		}
	}()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
