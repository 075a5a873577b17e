package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch [topic]",
	Short: "Stream property change events from NATS",
	Long: `Watch subscribes to change events and prints them as they arrive. The
default subscription covers every propkeep topic; pass a narrower subject
(for example propkeep.property.updated) to filter.`,
	Args: cobra.MaximumNArgs(1),
	// Events come straight off the bus; skip the store dial.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := "propkeep.>"
		if len(args) == 1 {
			topic = args[0]
		}

		natsURL := resolveNATSURL()
		if natsURL == "" {
			return fmt.Errorf("no NATS configured: set PROPKEEP_NATS_URL or a workspace nats_url")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats: disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats: reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Fprintf(os.Stderr, "watching %s (ctrl-c to stop)\n", topic)
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(msg)
			}
		}
	},
}

// printEvent pretty-prints a raw event payload, falling back to the raw
// bytes when it is not JSON.
func printEvent(data []byte) {
	if jsonOutput {
		fmt.Println(string(data))
		return
	}
	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err != nil {
		fmt.Println(string(data))
		return
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(string(out))
}
