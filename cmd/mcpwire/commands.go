package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcpwire/mcpwire/client"
)

const defaultTimeout = 30 * time.Second

// withClient connects a client for the selected server, runs fn, and
// disconnects. All subcommands go through here.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	options := []client.Option{
		client.WithLogger(buildLogger()),
		client.WithRequestTimeout(flagTimeout),
	}

	var c *client.Client
	var err error
	switch {
	case flagURL != "" || flagCmd != "":
		server := client.ServerConfig{URL: flagURL}
		if flagCmd != "" {
			parts := strings.Fields(flagCmd)
			if len(parts) == 0 {
				return fmt.Errorf("--cmd is empty")
			}
			server.Command = parts[0]
			server.Args = parts[1:]
		}
		c, err = client.NewClientFromServer(server, options...)
	case flagServer != "":
		c, err = client.NewClientFromConfigFile(flagConfig, flagServer, options...)
	default:
		return fmt.Errorf("one of --server, --url, or --cmd is required")
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = c.Disconnect(context.Background()) }()

	return fn(ctx, c)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the server's tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				tools, err := c.ListTools(ctx)
				if err != nil {
					return err
				}
				return printJSON(tools)
			})
		},
	}
}

func newCallCmd() *cobra.Command {
	var argsJSON string
	var noRetry bool

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var toolArgs map[string]interface{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				var opts []client.CallOption
				if noRetry {
					opts = append(opts, client.WithCallRetry(false))
				}
				result, err := c.CallTool(ctx, args[0], toolArgs, opts...)
				if err != nil {
					return err
				}
				content, err := result.DecodedContent()
				if err != nil {
					return err
				}
				if result.IsError {
					fmt.Fprintln(os.Stderr, "tool reported an error")
				}
				return printJSON(content)
			})
		},
	}
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "", "tool arguments as a JSON object")
	cmd.Flags().BoolVar(&noRetry, "no-retry", false, "disable retry for this call")
	return cmd
}

func newResourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the server's resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				resources, err := c.ListResources(ctx)
				if err != nil {
					return err
				}
				return printJSON(resources)
			})
		},
	}
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <uri>",
		Short: "Read a resource by URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				contents, err := c.ReadResource(ctx, args[0])
				if err != nil {
					return err
				}
				for _, item := range contents {
					if item.Text != "" {
						fmt.Println(item.Text)
						continue
					}
					if err := printJSON(item); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List the server's prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				prompts, err := c.ListPrompts(ctx)
				if err != nil {
					return err
				}
				return printJSON(prompts)
			})
		},
	}
}

func newPromptCmd() *cobra.Command {
	var rawArgs []string

	cmd := &cobra.Command{
		Use:   "prompt <name>",
		Short: "Expand a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			promptArgs := make(map[string]string, len(rawArgs))
			for _, pair := range rawArgs {
				key, value, found := strings.Cut(pair, "=")
				if !found {
					return fmt.Errorf("--arg %q: want key=value", pair)
				}
				promptArgs[key] = value
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				result, err := c.GetPrompt(ctx, args[0], promptArgs)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "prompt argument as key=value (repeatable)")
	return cmd
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check server liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				start := time.Now()
				if err := c.Ping(ctx); err != nil {
					return err
				}
				info := c.ServerInfo()
				fmt.Printf("%s %s: ok (%v, protocol %s)\n",
					info.Name, info.Version, time.Since(start).Round(time.Millisecond), c.NegotiatedVersion())
				return nil
			})
		},
	}
}
