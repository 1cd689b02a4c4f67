package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/infrastructure/csvload"
	"github.com/jacksonlee411/tree-of-life/pkg/nodefilter"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the node and path tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if err := s.store.EnsureSchema(ctx); err != nil {
					return err
				}
				s.logger.Info("schema ready")
				return nil
			})
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var nodesPath, linksPath string
	var ensureSchema bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the Tree of Life CSV export and save it as one tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if nodesPath == "" || linksPath == "" {
				return errors.New("--nodes and --links are required")
			}
			loader := csvload.NewLoader()
			if err := loader.LoadNodesFile(nodesPath); err != nil {
				return err
			}
			if err := loader.LoadLinksFile(linksPath); err != nil {
				return err
			}
			root, err := loader.Root()
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if ensureSchema {
					if err := s.store.EnsureSchema(ctx); err != nil {
						return err
					}
				}
				if err := s.service.SaveTree(ctx, root); err != nil {
					return err
				}
				s.logger.Info("import complete", zap.Int("nodes", loader.Len()), zap.Int64("root_id", root.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nodesPath, "nodes", "", "path to treeoflife_nodes.csv")
	cmd.Flags().StringVar(&linksPath, "links", "", "path to treeoflife_links.csv")
	cmd.Flags().BoolVar(&ensureSchema, "ensure-schema", true, "create tables before importing")
	return cmd
}

func newNodeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "node <id>",
		Short: "Show a single node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("id", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				n, err := s.service.GetNode(ctx, id)
				if err != nil {
					return err
				}
				if n == nil {
					return fmt.Errorf("node %d not found", id)
				}
				return printNodes(cmd.OutOrStdout(), opts.jsonOutput, []types.NodeData{*n})
			})
		},
	}
}

func newTreeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the whole stored tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				root, err := s.service.GetTree(ctx)
				if err != nil {
					return err
				}
				return printTree(cmd.OutOrStdout(), opts.jsonOutput, root)
			})
		},
	}
}

func newSubTreeCmd(opts *rootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "subtree <id>",
		Short: "Print the subtree rooted at id, or the nodes in it matching --filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("id", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if filter != "" {
					nodes, err := s.service.FindInSubTree(ctx, id, filter)
					if err != nil {
						return err
					}
					return printNodes(cmd.OutOrStdout(), opts.jsonOutput, nodes)
				}
				root, err := s.service.GetSubTree(ctx, id)
				if err != nil {
					return err
				}
				if root == nil {
					return fmt.Errorf("node %d not found", id)
				}
				return printTree(cmd.OutOrStdout(), opts.jsonOutput, root)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", `CEL predicate over id, name, extinct, confidence (e.g. "extinct && confidence > 0")`)
	return cmd
}

func newChildrenCmd(opts *rootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "children <id>",
		Short: "List the direct children of id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("id", args[0])
			if err != nil {
				return err
			}
			f, err := nodefilter.Compile(filter)
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				children, err := s.service.GetChildren(ctx, id)
				if err != nil {
					return err
				}
				out := make([]types.NodeData, 0, len(children))
				for _, c := range children {
					ok, err := f.Match(c)
					if err != nil {
						return err
					}
					if ok {
						out = append(out, c)
					}
				}
				return printNodes(cmd.OutOrStdout(), opts.jsonOutput, out)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "CEL predicate applied to each child")
	return cmd
}

func newPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path <id>",
		Short: "List the nodes from the root down to id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("id", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				nodes, err := s.service.GetNodePath(ctx, id)
				if err != nil {
					return err
				}
				return printNodes(cmd.OutOrStdout(), opts.jsonOutput, nodes)
			})
		},
	}
}

func newParentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parent <id>",
		Short: "Show the parent of id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("id", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				p, err := s.service.GetParentNode(ctx, id)
				if err != nil {
					return err
				}
				if p == nil {
					return printNodes(cmd.OutOrStdout(), opts.jsonOutput, nil)
				}
				return printNodes(cmd.OutOrStdout(), opts.jsonOutput, []types.NodeData{*p})
			})
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var node types.NodeData
	cmd := &cobra.Command{
		Use:   "add <parent-id> <id>",
		Short: "Add a leaf node under parent-id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := parseIDArg("parent-id", args[0])
			if err != nil {
				return err
			}
			if node.ID, err = parseIDArg("id", args[1]); err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				return s.service.AddNode(ctx, node, parentID)
			})
		},
	}
	cmd.Flags().StringVar(&node.Name, "name", "", "node name")
	cmd.Flags().BoolVar(&node.Extinct, "extinct", false, "mark the node extinct")
	cmd.Flags().IntVar(&node.Confidence, "confidence", 0, "placement confidence (0 = confident)")
	return cmd
}

func newMoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <new-parent-id>",
		Short: "Move the subtree rooted at id under new-parent-id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("id", args[0])
			if err != nil {
				return err
			}
			parentID, err := parseIDArg("new-parent-id", args[1])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				return s.service.MoveSubTree(ctx, id, parentID)
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete id and all of its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("id", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				return s.service.DeleteSubTree(ctx, id)
			})
		},
	}
}
