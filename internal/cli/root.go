package cli

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

func init() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok &&
			info.Main.Version != "" &&
			info.Main.Version != "(devel)" {
			version = strings.TrimPrefix(info.Main.Version, "v")
		}
	}
}

// NewRootCmd creates the root cobra command for the forum CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "forum",
		Short: "Forum server CLI",
		Long:  "Forum server CLI: run the forum server or manage its content.\n\nClient commands require FORUM_TOKEN and optionally FORUM_URL (default " + defaultURL + ").",
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if !showVersion {
				return cmd.Help()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forum %s\n", version)
			return nil
		},
	}

	root.Flags().BoolP("version", "v", false, "show version information")
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddGroup(
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "client", Title: "Client Commands:"},
	)

	serveCmd := newServeCmd()
	serveCmd.GroupID = "server"
	root.AddCommand(serveCmd)

	for _, cmd := range []*cobra.Command{
		newWhoamiCmd(),
		newGroupCmd(),
		newTopicCmd(),
		newReplyCmd(),
		newCommentsCmd(),
		newTagsCmd(),
		newExpireCmd(),
	} {
		cmd.GroupID = "client"
		root.AddCommand(cmd)
	}

	return root
}
