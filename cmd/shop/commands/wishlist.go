package commands

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/storefront/internal/domain/wishlist"
)

func wishlistCmd(s *shop) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Manage the wishlist",
	}
	cmd.AddCommand(
		wishlistShowCmd(s),
		wishlistToggleCmd(s),
		wishlistPriorityCmd(s),
		wishlistRemoveCmd(s),
	)
	return cmd
}

func wishlistShowCmd(s *shop) *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := wishlist.ParseOrder(order)
			if err != nil {
				return err
			}
			// Catalog errors leave cached details in place.
			if _, err := s.session.Refresh(cmd.Context()); err != nil {
				s.lg.Debug("Wishlist details may be stale")
			}

			out := cmd.OutOrStdout()
			items := s.session.Wishlist.SortedView(o)
			if len(items) == 0 {
				printf(out, "Your wishlist is empty.\n")
				return nil
			}
			tw := table(out)
			printf(tw, "ID\tNAME\tPRICE\tPRIORITY\tSTOCK\n")
			for _, it := range items {
				p := it.Product
				printf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, money(p.DiscountedPrice(), p.Currency), it.Priority, p.Status())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&order, "order", "none", "none, priority-desc, priority-asc, price-asc or price-desc")
	return cmd
}

func wishlistToggleCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <product-id>",
		Short: "Add or remove a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := s.session.Wishlist.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if added {
				printf(cmd.OutOrStdout(), "Added %s to your wishlist.\n", args[0])
			} else {
				printf(cmd.OutOrStdout(), "Removed %s from your wishlist.\n", args[0])
			}
			return nil
		},
	}
}

func wishlistPriorityCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "priority <product-id> <1-5>",
		Short: "Set a member's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(wishlist.ErrInvalidPriority, "got %q", args[1])
			}
			if err := s.session.Wishlist.SetPriority(cmd.Context(), args[0], priority); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Priority of %s set to %d.\n", args[0], priority)
			return nil
		},
	}
}

func wishlistRemoveCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.session.Wishlist.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Removed %s from your wishlist.\n", args[0])
			return nil
		},
	}
}
