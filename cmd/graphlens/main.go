// Command graphlens runs the visualization server behind the notebook
// graph widget.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graphlens",
	Short: "Interactive graph visualization server for notebook widgets",
	Long: `graphlens serves the engine behind the notebook graph widget:
sessions, query execution, interaction state and render frames
streamed over websockets.`,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
