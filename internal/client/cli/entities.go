package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/client/services"
	"github.com/spf13/cobra"
)

func newCategoryCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}

	var color string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			var c *string
			if color != "" {
				c = &color
			}
			cat, err := a.entity.AddCategory(cmd.Context(), args[0], c)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, cat.ID)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "display color, e.g. #ff8800")

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			cats, err := a.entity.Categories(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, deref(c.Color))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(add, list, newDeleteCmd(app, models.EntityCategory))
	return cmd
}

func newActivityCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"act"},
		Short:   "Manage activities",
	}

	var (
		categoryID  string
		description string
		amount      float64
		score       int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Log an activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			in := services.ActivityInput{CategoryID: categoryID}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("amount") {
				in.Amount = &amount
			}
			if cmd.Flags().Changed("score") {
				in.Score = &score
			}

			act, err := a.entity.AddActivity(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, act.ID)
			return nil
		},
	}
	add.Flags().StringVar(&categoryID, "category", "", "category id")
	add.Flags().StringVarP(&description, "description", "d", "", "free text")
	add.Flags().Float64VarP(&amount, "amount", "a", 0, "amount")
	add.Flags().IntVarP(&score, "score", "s", 0, "score")
	_ = add.MarkFlagRequired("category")

	list := &cobra.Command{
		Use:   "list",
		Short: "List activities, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			acts, err := a.entity.Activities(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tCREATED\tAMOUNT\tSCORE\tDESCRIPTION")
			for _, act := range acts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					act.ID, act.CategoryID,
					time.UnixMilli(act.CreatedAt).Format(time.DateTime),
					deref(act.Amount), deref(act.Score), deref(act.Description))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(add, list, newDeleteCmd(app, models.EntityActivity))
	return cmd
}

func newDeleteCmd(app func() *App, entity models.Entity) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: fmt.Sprintf("Delete a %s", entity),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.entity.Delete(cmd.Context(), entity, args[0]); err != nil {
				return fmt.Errorf("%s %s: %w", entity, args[0], err)
			}
			fmt.Fprintf(a.out, "Deleted %s %s\n", entity, args[0])
			return nil
		},
	}
}

func deref[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
