package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rzbill/traced/internal/artifact"
)

// NewTraceCommand constructs the `trace` command group and subcommands.
func NewTraceCommand(baseURL BaseURLFunc) *cobra.Command {
	traceCmd := &cobra.Command{Use: "trace", Short: "Trace recorder operations"}

	traceCmd.AddCommand(
		newTraceRecordCommand(baseURL),
		newTraceEnableCommand(baseURL),
		newTraceDisableCommand(baseURL),
		newTraceConfigureCommand(baseURL),
		newTraceDumpCommand(baseURL),
		newTraceStatusCommand(baseURL),
		newTraceArtifactsCommand(baseURL),
	)

	return traceCmd
}

// newTraceRecordCommand constructs the `trace record` subcommand.
func newTraceRecordCommand(baseURL BaseURLFunc) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Submit one trace event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetUint32("id")
			typ, _ := cmd.Flags().GetString("type")
			text, _ := cmd.Flags().GetString("text")
			dataB64, _ := cmd.Flags().GetString("data")

			if dataB64 != "" {
				if _, err := base64.StdEncoding.DecodeString(dataB64); err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
			}
			body := map[string]any{"id": id, "type": typ}
			if dataB64 != "" {
				body["payload"] = dataB64
			} else if text != "" {
				body["text"] = text
			}
			if err := postJSON(cmd.Context(), baseURL()+"/v1/trace/record", body, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status: queued")
			return nil
		},
	}
	recordCmd.Flags().Uint32("id", 0, "Trace point id")
	recordCmd.Flags().String("type", "point", "Event type: enter|exit|point")
	recordCmd.Flags().String("text", "", "Payload as plain text")
	recordCmd.Flags().String("data", "", "Payload as base64 bytes (wins over --text)")
	return recordCmd
}

// newTraceEnableCommand constructs the `trace enable` subcommand.
func newTraceEnableCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Enable trace recording",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setEnable(cmd, baseURL, true)
		},
	}
}

// newTraceDisableCommand constructs the `trace disable` subcommand.
func newTraceDisableCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable trace recording",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setEnable(cmd, baseURL, false)
		},
	}
}

func setEnable(cmd *cobra.Command, baseURL BaseURLFunc, enable bool) error {
	body := map[string]bool{"enable": enable}
	if err := postJSON(cmd.Context(), baseURL()+"/v1/trace/enable", body, nil); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "status: ok")
	return nil
}

// newTraceConfigureCommand constructs the `trace configure` subcommand.
func newTraceConfigureCommand(baseURL BaseURLFunc) *cobra.Command {
	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Set the trace file path and byte budget (before first write)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("path")
			maxSize, _ := cmd.Flags().GetUint64("max-size")
			body := map[string]any{"path": path, "maxSizeBytes": maxSize}
			if err := postJSON(cmd.Context(), baseURL()+"/v1/trace/configure", body, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status: ok")
			return nil
		},
	}
	configureCmd.Flags().String("path", "", "Trace file path")
	configureCmd.Flags().Uint64("max-size", 0, "Byte budget (0 keeps current)")
	_ = configureCmd.MarkFlagRequired("path")
	return configureCmd
}

// newTraceDumpCommand constructs the `trace dump` subcommand.
func newTraceDumpCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Snapshot the trace file into a stored artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var meta artifact.Meta
			if err := postJSON(cmd.Context(), baseURL()+"/v1/trace/dump", map[string]any{}, &meta); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}

// newTraceStatusCommand constructs the `trace status` subcommand.
func newTraceStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show recorder status and counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var status map[string]any
			if err := getJSON(cmd.Context(), baseURL()+"/v1/trace/status", &status); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
}

// newTraceArtifactsCommand constructs `trace artifacts` with list/get below it.
func newTraceArtifactsCommand(baseURL BaseURLFunc) *cobra.Command {
	artifactsCmd := &cobra.Command{Use: "artifacts", Short: "Dump artifact operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List dump artifacts in creation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var metas []artifact.Meta
			if err := getJSON(cmd.Context(), baseURL()+"/v1/trace/artifacts", &metas); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(metas)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch an artifact's raw trace bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			data, err := getRaw(cmd.Context(), baseURL()+"/v1/trace/artifacts/"+args[0])
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), out)
			return nil
		},
	}
	getCmd.Flags().String("out", "", "Write bytes to this file instead of stdout")

	artifactsCmd.AddCommand(listCmd, getCmd)
	return artifactsCmd
}
