package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cuemby/tracething/pkg/client"
	"github.com/cuemby/tracething/pkg/config"
	"github.com/cuemby/tracething/pkg/events"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show slot occupancy and component health of a running responder",
	Long: `Query the admin listener of a running responder and print slot table
occupancy plus the health of every registered component.

Examples:
  tracething status
  tracething status --admin 127.0.0.1:9153`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		slots, err := c.Slots()
		if err != nil {
			return err
		}
		health, err := c.Health()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Status:   %s\n", health.Status)
		if health.Version != "" {
			fmt.Fprintf(out, "Version:  %s\n", health.Version)
		}
		if health.Uptime != "" {
			fmt.Fprintf(out, "Uptime:   %s\n", health.Uptime)
		}
		if slots.Slots != nil {
			fmt.Fprintf(out, "Slots:    %d/%d in use, next %d\n", slots.Slots.Used, slots.Slots.Capacity, slots.Slots.Next)
		}
		fmt.Fprintf(out, "Sources:  %v\n", slots.Sources)

		names := make([]string, 0, len(health.Components))
		for name := range health.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COMPONENT\tSTATE")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, health.Components[name])
		}
		return w.Flush()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream slot allocations and fetch failures from a running responder",
	Long: `Follow the activity stream of a running responder until interrupted.

Examples:
  tracething watch
  tracething watch --admin 127.0.0.1:9153`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return c.Watch(ctx, func(ev *events.Event) error {
			fmt.Fprintf(out, "%s  %-15s %s\n", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.Message)
			return nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{statusCmd, watchCmd} {
		cmd.Flags().String("admin", "", "Admin listener address (default from config)")
	}
}

// adminClient builds a client for --admin, falling back to admin.listen
func adminClient(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("admin")
	if addr == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		addr = cfg.Admin.Listen
	}
	if addr == "" {
		addr = config.DefaultAdminAddr
	}
	return client.NewClient(addr), nil
}
