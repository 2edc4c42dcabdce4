package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Strob0t/standardhub/internal/adapter/postgres"
)

// catalogCmd seeds the parent rows (conventions, package structures) that
// catalogue entities hang off. These are managed outside the feedback queue.
func catalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Read catalogue entities and seed parent rows",
	}

	seed := func(use, short string, create func(pg *postgres.Store, ctx context.Context, name string) (int64, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <name>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(cmd.Context(), c.cfg)
				if err != nil {
					return err
				}
				defer a.Close()

				pg, ok := a.store.(*postgres.Store)
				if !ok {
					return errors.New("seeding requires storage.driver postgres")
				}
				id, err := create(pg, cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			},
		}
	}

	cmd.AddCommand(
		seed("add-convention", "Create a convention and print its id", (*postgres.Store).CreateConvention),
		seed("add-structure", "Create a package structure and print its id", (*postgres.Store).CreatePackageStructure),
		catalogGetCmd(c),
	)
	return cmd
}

func catalogGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <coding-rule|rule-example|class-template|checklist-item|archunit-test> <id>",
		Short: "Print a catalogue entity as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}
			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var v any
			switch args[0] {
			case "coding-rule":
				v, err = a.catalog.CodingRule(ctx, id)
			case "rule-example":
				v, err = a.catalog.RuleExample(ctx, id)
			case "class-template":
				v, err = a.catalog.ClassTemplate(ctx, id)
			case "checklist-item":
				v, err = a.catalog.ChecklistItem(ctx, id)
			case "archunit-test":
				v, err = a.catalog.ArchUnitTest(ctx, id)
			default:
				return fmt.Errorf("unknown entity kind %q", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
}
