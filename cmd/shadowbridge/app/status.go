package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

type endpointRow struct {
	Name            string               `json:"Name"`
	Type            string               `json:"Type"`
	SubscribedPaths map[string]struct{}  `json:"SubscribedPaths"`
}

// newStatusCommand builds the "status" subcommand: it queries a running
// bridge's admin server for its tracked-endpoint snapshot and renders it
// as a table using gosuri/uitable.
func newStatusCommand() *cobra.Command {
	var addr string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the tracked endpoints of a running shadowbridge instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(addr, timeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8443", "Admin server base address.")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout.")
	return cmd
}

func runStatus(addr string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(addr + "/debug/endpoints")
	if err != nil {
		return fmt.Errorf("fetch endpoint snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch endpoint snapshot: unexpected status %s", resp.Status)
	}

	var rows []endpointRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return fmt.Errorf("decode endpoint snapshot: %w", err)
	}

	table := uitable.New()
	table.MaxColWidth = 64
	table.AddRow("NAME", "TYPE", "OBSERVED PATHS")
	for _, row := range rows {
		table.AddRow(row.Name, row.Type, len(row.SubscribedPaths))
	}

	fmt.Println(table)
	return nil
}
