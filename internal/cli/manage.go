package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity>...",
		Short: "Remove entities from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, entity := range args {
				if err := a.engine.DeleteEntity(cmd.Context(), entity); err != nil {
					return fmt.Errorf("deleting %s: %w", entity, err)
				}
				printf(cmd.OutOrStdout(), "deleted %s\n", entity)
			}
			return nil
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename an indexed entity, keeping its postings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.RenameEntity(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("renaming %s: %w", args[0], err)
			}
			printf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func (a *app) entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List every entity name known to the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.engine.Entities()
			if err != nil {
				return err
			}
			for _, name := range names {
				printf(cmd.OutOrStdout(), "%s\n", name)
			}
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every index file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear %s without --yes", a.cfg.Indexer.DataDir)
			}
			if err := a.engine.Clear(cmd.Context()); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "cleared %s\n", a.cfg.Indexer.DataDir)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm removal of the index")
	return cmd
}
