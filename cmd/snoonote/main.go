package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor = os.Getenv("NO_COLOR") != ""

var rootCmd = &cobra.Command{
	Use:   "snoonote",
	Short: "Reddit Q&A to Notion MCP server",
	Long: `snoonote exposes Reddit search and Notion persistence as MCP tools:
an LLM client searches Reddit for discussion context, answers a question,
and saves the finished exchange into a Notion database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the snoonote version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("snoonote version " + version)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
