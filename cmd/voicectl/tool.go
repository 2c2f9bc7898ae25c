package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var toolCmd = &cobra.Command{
	Use:   "tool <name> [json-arguments]",
	Short: "Call a backend tool through the service",
	Example: `  voicectl tool get_drug_info '{"drug_name":"Aspirin"}'
  voicectl tool track_shipment '{"tracking_number":"1234567890"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTool,
}

var agentConfigCmd = &cobra.Command{
	Use:   "agent-config",
	Short: "Print the voice agent settings served by the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().AgentConfig(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, raw)
	},
}

func init() {
	rootCmd.AddCommand(toolCmd)
	rootCmd.AddCommand(agentConfigCmd)
}

func runTool(cmd *cobra.Command, args []string) error {
	var raw json.RawMessage
	if len(args) == 2 {
		raw = json.RawMessage(args[1])
		if !json.Valid(raw) {
			return fmt.Errorf("arguments are not valid JSON: %s", args[1])
		}
	}

	result, err := newClient().Dispatch(cmd.Context(), args[0], raw)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
