package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cuemby/meshrelay/pkg/config"
	"github.com/cuemby/meshrelay/pkg/decoder"
	"github.com/cuemby/meshrelay/pkg/render"
	"github.com/cuemby/meshrelay/pkg/router"
	"github.com/cuemby/meshrelay/pkg/storage"
	"github.com/spf13/cobra"
)

const samplePayload = `{"type":"msg","src":"TEST-1","dst":"*","msg_id":"1","msg":"Hello, World!"}`

var sendCmd = &cobra.Command{
	Use:   "send [payload]",
	Short: "Send one UDP datagram to a relay",
	Long: `Send a single datagram, by default a sample text message, to a
running relay. Use "-" to read the payload from stdin.

Examples:
  meshrelay send
  meshrelay send '{"type":"pos","src":"OE1XYZ-1","lat":48.2,"long":16.3,"alt":512}'
  echo '{"type":"msg","msg":"hi"}' | meshrelay send - --addr 10.0.0.5:1799`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		payload, err := payloadArg(args, samplePayload)
		if err != nil {
			return err
		}

		conn, err := net.Dial("udp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		defer conn.Close()

		n, err := conn.Write(payload)
		if err != nil {
			return fmt.Errorf("failed to send datagram: %w", err)
		}
		fmt.Printf("✓ Sent %d bytes to %s\n", n, addr)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [json]",
	Short: "Render a message with the configured templates",
	Long: `Decode a message and print the notification text the relay would send,
without sending it. The matching forwarding rule is reported on stderr.
Use "-" or no argument to read the message from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		payload, err := payloadArg(args, "")
		if err != nil {
			return err
		}

		msg, err := decoder.Decode(payload)
		if err != nil {
			return err
		}

		templates, err := cfg.Templates()
		if err != nil {
			return err
		}

		if rule := router.NewRouter(cfg.ForwardingRules()).Route(msg); rule != nil {
			fmt.Fprintf(os.Stderr, "Matched rule: %s\n", rule)
		} else {
			fmt.Fprintln(os.Stderr, "No forwarding rule matches this message")
		}

		text, err := render.NewRenderer(templates).Execute(msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Template error: %v\n", err)
		}
		fmt.Println(text)
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List recently stored messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		if limit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := storage.Open(ctx, cfg.StorageConfig())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		records, err := store.Recent(ctx, limit)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		return printRecords(os.Stdout, records)
	},
}

func init() {
	sendCmd.Flags().String("addr", "127.0.0.1:1799", "Relay UDP address")

	messagesCmd.Flags().Int("limit", 20, "Number of messages to list")
	messagesCmd.Flags().Bool("json", false, "Print records as JSON")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(messagesCmd)
}

// payloadArg returns the single argument, stdin for "-" or no argument
// without a fallback, or the fallback
func payloadArg(args []string, fallback string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	if len(args) == 0 && fallback != "" {
		return []byte(fallback), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

func printRecords(out io.Writer, records []*storage.Record) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECEIVED\tTYPE\tSOURCE\tDEST\tMSG ID")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.ReceivedAt.Format("2006-01-02 15:04:05"),
			orDash(r.Type), orDash(r.Source), orDash(r.Dest), orDash(r.MsgID))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
