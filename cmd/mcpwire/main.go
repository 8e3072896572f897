package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpwire/mcpwire/client"
	"github.com/mcpwire/mcpwire/logx"
)

var (
	flagConfig   string
	flagServer   string
	flagURL      string
	flagCmd      string
	flagTimeout  = defaultTimeout
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mcpwire",
	Short: "Interact with MCP servers from the command line",
	Long: `mcpwire connects to an MCP server described in a config file and
exposes its tools, resources, and prompts as subcommands.`,
	SilenceUsage: true,
	Version:      client.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "mcp.json", "path to the server config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "", "server name from the config file")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "connect directly to a server URL, bypassing the config file")
	rootCmd.PersistentFlags().StringVar(&flagCmd, "cmd", "", "spawn a stdio server command directly, bypassing the config file")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", defaultTimeout, "per-request timeout")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newResourcesCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newPromptsCmd())
	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newPingCmd())
}

func buildLogger() logx.Logger {
	level := logx.LevelWarn
	switch flagLogLevel {
	case "debug":
		level = logx.LevelDebug
	case "info":
		level = logx.LevelInfo
	case "error":
		level = logx.LevelError
	}
	logger := logx.NewDefaultLogger()
	logger.SetLevel(level)
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
