package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/muster/internal/domain"
)

type statusFlags struct {
	addr    string
	output  string
	timeout time.Duration
}

func newStatusCmd() *cobra.Command {
	var f statusFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the services of a running muster",
		Example: `  # Table of services
  muster status

  # Another instance, as yaml
  muster status --addr http://localhost:6000 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := fetchServices(cmd, f)
			if err != nil {
				return err
			}
			return printServices(cmd.OutOrStdout(), views, f.output)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "http://localhost:5000", "Base URL of the muster API")
	cmd.Flags().StringVarP(&f.output, "output", "o", "table", "Output format (table|json|yaml)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "How long to wait for services to initialize")
	return cmd
}

func fetchServices(cmd *cobra.Command, f statusFlags) ([]domain.ServiceView, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
		strings.TrimRight(f.addr, "/")+"/api/v1/services", nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: f.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("muster is not reachable at %s: %w", f.addr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var views []domain.ServiceView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return views, nil
}

func printServices(w io.Writer, views []domain.ServiceView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(views)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSTATE\tPID\tEXIT\tADDRESS")
	for _, v := range views {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.Name, stateLabel(v), optInt(v.PID), optInt(v.ExitCode), address(v))
	}
	return tw.Flush()
}

func stateLabel(v domain.ServiceView) string {
	if v.External {
		return "External"
	}
	return string(v.State)
}

func address(v domain.ServiceView) string {
	if v.BoundAddress != "" {
		return v.BoundAddress
	}
	if len(v.Bindings) > 0 {
		return v.Bindings[0].Address
	}
	return "-"
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}
