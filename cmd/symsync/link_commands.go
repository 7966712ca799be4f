package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"symsync/internal/ipc"
)

func newLinkCommand(ctx *commandContext) *cobra.Command {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Manage link configurations",
	}

	linkCmd.AddCommand(
		newLinkCreateCommand(ctx),
		newLinkListCommand(ctx),
		newLinkShowCommand(ctx),
		newLinkRenameCommand(ctx),
		newLinkSetTargetCommand(ctx),
		newLinkSetIntervalCommand(ctx),
		newLinkAddSourceCommand(ctx),
		newLinkRemoveSourceCommand(ctx),
		newLinkStartCommand(ctx),
		newLinkStopCommand(ctx),
		newLinkDeleteCommand(ctx),
		newLinkLogsCommand(ctx),
		newLinkRescanCommand(ctx),
	)
	return linkCmd
}

func newLinkCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new link configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinkCreate(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", resp.Config.Name, resp.Config.ID)
				return nil
			})
		},
	}
}

func newLinkListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List link configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinkList()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Configs)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Configs) == 0 {
					fmt.Fprintln(stdout, "No link configurations")
					return nil
				}
				fmt.Fprintln(stdout, renderLinkTable(resp.Configs))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit configurations as JSON")
	return cmd
}

func newLinkShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one link configuration in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinkShow(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Config)
				}
				printLinkDetails(cmd, resp.Config)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the configuration as JSON")
	return cmd
}

func newLinkRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a link configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.LinkRename(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newLinkSetTargetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-target <id> <directory>",
		Short: "Set the target directory (configuration must be stopped)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.LinkSetTarget(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Target of %s set to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newLinkSetIntervalCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-interval <id> <seconds>",
		Short: "Set the reconciliation interval",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[1])
			if err != nil || seconds <= 0 {
				return fmt.Errorf("interval must be a positive number of seconds, got %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.LinkSetInterval(args[0], seconds); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rescan interval of %s set to %ds\n", args[0], seconds)
				return nil
			})
		},
	}
}

func newLinkAddSourceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-source <id> <directory>",
		Short: "Add a source directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.LinkAddSource(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added source %s to %s\n", args[1], args[0])
				return nil
			})
		},
	}
}

func newLinkRemoveSourceCommand(ctx *commandContext) *cobra.Command {
	var removeLinks bool
	cmd := &cobra.Command{
		Use:   "remove-source <id> <directory>",
		Short: "Remove a source directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.LinkRemoveSource(args[0], args[1], removeLinks); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed source %s from %s\n", args[1], args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&removeLinks, "remove-links", false, "Also delete links in the target that point into this source")
	return cmd
}

func newLinkStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Activate a link configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinkStart(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started %q: %s\n", resp.Config.Name, resp.Config.Status)
				return nil
			})
		},
	}
}

func newLinkStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Deactivate a link configuration (links remain on disk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.LinkStop(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", args[0])
				return nil
			})
		},
	}
}

func newLinkDeleteCommand(ctx *commandContext) *cobra.Command {
	var removeLinks bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a link configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.LinkDelete(args[0], removeLinks); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&removeLinks, "remove-links", false, "Also delete links in the target created from this configuration")
	return cmd
}

func newLinkLogsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <id>",
		Short: "Show the status log of a link configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinkLogs(args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Logs) == 0 {
					fmt.Fprintln(stdout, "No log entries")
					return nil
				}
				for _, line := range resp.Logs {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
}

func newLinkRescanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rescan <id>",
		Short: "Force an immediate reconciliation pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Rescan(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rescan of %s completed\n", args[0])
				return nil
			})
		},
	}
}

func newRescanCommand(ctx *commandContext) *cobra.Command {
	cmd := newLinkRescanCommand(ctx)
	cmd.Use = "rescan <id>"
	cmd.Short = "Force an immediate reconciliation pass for a configuration"
	return cmd
}

func renderLinkTable(configs []ipc.LinkConfig) string {
	rows := make([][]string, 0, len(configs))
	for _, cfg := range configs {
		active := "stopped"
		if cfg.Active {
			active = "active"
		}
		rows = append(rows, []string{
			cfg.ID,
			cfg.Name,
			active,
			cfg.TargetPath,
			strconv.Itoa(len(cfg.Sources)),
			strconv.Itoa(cfg.RescanInterval) + "s",
		})
	}
	return renderTable(
		[]string{"ID", "Name", "State", "Target", "Sources", "Rescan"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func printLinkDetails(cmd *cobra.Command, cfg ipc.LinkConfig) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "ID:        %s\n", cfg.ID)
	fmt.Fprintf(stdout, "Name:      %s\n", cfg.Name)
	fmt.Fprintf(stdout, "Active:    %s\n", yesNo(cfg.Active))
	fmt.Fprintf(stdout, "Target:    %s\n", valueOrDash(cfg.TargetPath))
	fmt.Fprintf(stdout, "Rescan:    %ds\n", cfg.RescanInterval)
	fmt.Fprintf(stdout, "Status:    %s\n", valueOrDash(cfg.Status))
	fmt.Fprintln(stdout, "Sources:")
	if len(cfg.Sources) == 0 {
		fmt.Fprintln(stdout, "  (none)")
		return
	}
	for _, source := range cfg.Sources {
		state := cfg.SessionStates[source]
		if state == "" {
			fmt.Fprintf(stdout, "  %s\n", source)
			continue
		}
		fmt.Fprintf(stdout, "  %s (%s)\n", source, state)
	}
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
