package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/mcp"
)

// mcpCommand creates the mcp command, which serves MCP tools on stdio.
func (c *CLI) mcpCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve diagram tools to an MCP client over stdio",
		Long: `Mcp runs a Model Context Protocol server on stdin and stdout with two
tools: render_diagram turns graph JSON into draw.io XML, and summarize_graph
reports resource counts and validation problems. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRunner(cmd.Context(), noCache)
			if err != nil {
				return err
			}
			defer r.Close()
			c.Logger.Debug("serving MCP on stdio")
			return mcp.NewServer(r).Serve()
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the preview cache")

	return cmd
}
