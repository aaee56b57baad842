package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// call sends one API request and prints the pretty-printed response.
func call(cmd *cobra.Command, method, path string, body any) error {
	c, err := NewClientFromEnv()
	if err != nil {
		return err
	}

	data, err := c.Do(method, path, body)
	if err != nil {
		return err
	}

	out, err := prettyJSON(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func topicIDArg(arg string) (string, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return "", fmt.Errorf("invalid topic id %q", arg)
	}
	return strconv.FormatInt(id, 10), nil
}

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create and list groups",
	}
	cmd.AddCommand(newGroupAddCmd(), newGroupListCmd())
	return cmd
}

func newGroupAddCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a group (or return the existing one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"name": args[0]}
			if title != "" {
				body["title"] = title
			}
			return call(cmd, "POST", "/api/v1/groups", body)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "display title (defaults to the name)")
	return cmd
}

func newGroupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, "GET", "/api/v1/groups", nil)
		},
	}
}

func newTopicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Create, list, show and edit topics",
	}
	cmd.AddCommand(newTopicAddCmd(), newTopicListCmd(), newTopicShowCmd(), newTopicEditCmd())
	return cmd
}

func newTopicAddCmd() *cobra.Command {
	var body string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add <group> <title>",
		Short: "Create a topic in a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"title": args[1],
				"body":  body,
			}
			if len(tags) > 0 {
				req["tags"] = tags
			}
			return call(cmd, "POST", "/api/v1/groups/"+url.PathEscape(args[0])+"/topics", req)
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "topic body (markdown)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	return cmd
}

func newTopicListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <group>",
		Short: "List a group's recent topics, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/groups/" + url.PathEscape(args[0]) + "/topics"
			if cmd.Flags().Changed("limit") {
				path += "?limit=" + strconv.Itoa(limit)
			}
			return call(cmd, "GET", path, nil)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of topics")
	return cmd
}

func newTopicShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := topicIDArg(args[0])
			if err != nil {
				return err
			}
			return call(cmd, "GET", "/api/v1/topics/"+id, nil)
		},
	}
}

func newTopicEditCmd() *cobra.Command {
	var title string
	var body string
	var tags []string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := topicIDArg(args[0])
			if err != nil {
				return err
			}

			req := map[string]any{}
			if cmd.Flags().Changed("title") {
				req["title"] = title
			}
			if cmd.Flags().Changed("body") {
				req["body"] = body
			}
			if cmd.Flags().Changed("tags") {
				if tags == nil {
					tags = []string{}
				}
				req["tags"] = tags
			}

			if len(req) == 0 {
				return fmt.Errorf("no fields to update")
			}
			return call(cmd, "PATCH", "/api/v1/topics/"+id, req)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "topic title")
	cmd.Flags().StringVar(&body, "body", "", "topic body (markdown)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "replace tags (comma-separated)")
	return cmd
}

func newReplyCmd() *cobra.Command {
	var parent int64

	cmd := &cobra.Command{
		Use:   "reply <topic-id> <body>",
		Short: "Reply to a topic or, with --parent, to a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := topicIDArg(args[0])
			if err != nil {
				return err
			}
			req := map[string]any{"body": args[1]}
			if cmd.Flags().Changed("parent") {
				req["parent_id"] = parent
			}
			return call(cmd, "POST", "/api/v1/topics/"+id+"/comments", req)
		},
	}

	cmd.Flags().Int64Var(&parent, "parent", 0, "id of the comment being replied to")
	return cmd
}

func newCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <topic-id>",
		Short: "Show a topic's comment tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := topicIDArg(args[0])
			if err != nil {
				return err
			}
			return call(cmd, "GET", "/api/v1/topics/"+id+"/comments", nil)
		},
	}
}

func newTagsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the most used tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, "GET", "/api/v1/tags/top?limit="+strconv.Itoa(limit), nil)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of tags")
	return cmd
}

func newExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire <path>",
		Short: "Drop the cached copy of a page, e.g. /golang/3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, "POST", "/api/v1/cache/expire", map[string]any{"path": args[0]})
		},
	}
}
