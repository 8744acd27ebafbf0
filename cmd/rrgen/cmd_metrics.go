package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spboyer/rrgen/internal/catalog"
	"github.com/spf13/cobra"
)

type metricInfo struct {
	Name        string `json:"name"`
	EngineFlag  string `json:"engine_flag"`
	Description string `json:"description"`
}

func newMetricsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "List the metrics rrgen can compute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos := make([]metricInfo, 0, len(catalog.All()))
			for _, m := range catalog.All() {
				infos = append(infos, metricInfo{Name: m.String(), EngineFlag: m.EngineFlag(), Description: m.Description()})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				data, err := json.MarshalIndent(infos, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal metrics: %w", err)
				}
				fmt.Fprintln(out, string(data)) //nolint:errcheck
			case "table":
				var b strings.Builder
				b.WriteString(padRight("NAME", 12) + padRight("ENGINE FLAG", 16) + "DESCRIPTION\n")
				for _, i := range infos {
					b.WriteString(padRight(i.Name, 12) + padRight(i.EngineFlag, 16) + i.Description + "\n")
				}
				fmt.Fprint(out, b.String()) //nolint:errcheck
			default:
				return fmt.Errorf("unsupported format %q: must be table or json", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	return cmd
}
