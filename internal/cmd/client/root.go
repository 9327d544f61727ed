package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the traced client.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "traced",
		Short: "traced client commands",
	}
	root.AddCommand(NewTraceCommand(baseURL))
	return root
}
