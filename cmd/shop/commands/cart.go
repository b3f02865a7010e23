package commands

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/storefront/internal/domain/cart"
)

func cartCmd(s *shop) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}
	cmd.AddCommand(
		cartShowCmd(s),
		cartAddCmd(s),
		cartSetCmd(s),
		cartStepCmd(s, "inc", "Add one unit to a line", (*cart.Engine).Increment),
		cartStepCmd(s, "dec", "Remove one unit from a line", (*cart.Engine).Decrement),
		cartRemoveCmd(s),
	)
	return cmd
}

func printCart(w io.Writer, c *cart.Engine) error {
	lines := c.Lines()
	if len(lines) == 0 {
		printf(w, "Your cart is empty.\n")
		return nil
	}

	tw := table(w)
	printf(tw, "#\tPRODUCT\tCOLOR\tQTY\tUNIT\tTOTAL\n")
	for i, l := range lines {
		lineTotal := l.Gross().Sub(l.Discount())
		printf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", i+1, l.Name, l.Color, l.Quantity,
			money(l.UnitPrice(), l.Currency), money(lineTotal, l.Currency))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	t := c.Totals().Display()
	currency := lines[0].Currency
	printf(w, "\nSubtotal: %s\nDiscount: -%s\nTotal:    %s\nItems:    %d\n",
		money(t.Subtotal, currency), money(t.Discount, currency), money(t.Total, currency), c.ItemCount())
	return nil
}

func printQuantity(w io.Writer, res cart.QuantityResult) {
	switch {
	case res.CeilingReached:
		printf(w, "Quantity %d: no more stock available.\n", res.Quantity)
	case !res.Changed:
		printf(w, "Quantity unchanged (%d).\n", res.Quantity)
	default:
		printf(w, "Quantity set to %d.\n", res.Quantity)
	}
}

func cartShowCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCart(cmd.OutOrStdout(), s.session.Cart)
		},
	}
}

func cartAddCmd(s *shop) *cobra.Command {
	var (
		color    string
		quantity int
	)
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := s.session.Catalog.GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			if err := cart.CheckAvailability(p, quantity); err != nil {
				return err
			}
			line, err := s.session.Cart.Add(ctx, p, color, quantity)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Added %d x %s (%s). Cart: %d items.\n",
				quantity, p.Name, line.Color, s.session.Cart.ItemCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "color (default: the product's first color)")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "number of units")
	return cmd
}

func cartSetCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "set <line> <quantity>",
		Short: "Set the quantity of a line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			i, err := lineIndex(args[0], s.session.Cart.Len())
			if err != nil {
				return err
			}
			if _, err := s.session.Refresh(ctx); err != nil {
				s.lg.Debug("Stock levels unavailable")
			}
			res, err := s.session.Cart.SetQuantityInput(ctx, i, args[1])
			if err != nil {
				return err
			}
			printQuantity(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func cartStepCmd(
	s *shop,
	use, short string,
	step func(*cart.Engine, context.Context, int) (cart.QuantityResult, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <line>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			i, err := lineIndex(args[0], s.session.Cart.Len())
			if err != nil {
				return err
			}
			if _, err := s.session.Refresh(ctx); err != nil {
				s.lg.Debug("Stock levels unavailable")
			}
			res, err := step(s.session.Cart, ctx, i)
			if err != nil {
				return err
			}
			printQuantity(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func cartRemoveCmd(s *shop) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove <line>",
		Short: "Remove a line after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := lineIndex(args[0], s.session.Cart.Len())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			confirm := cart.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
				if yes {
					return true, nil
				}
				printf(out, "%s [y/N] ", prompt)
				answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return false, err
				}
				answer = strings.ToLower(strings.TrimSpace(answer))
				return answer == "y" || answer == "yes", nil
			})

			removed, err := s.session.Cart.Remove(cmd.Context(), i, confirm)
			if err != nil {
				return err
			}
			if removed {
				printf(out, "Removed.\n")
			} else {
				printf(out, "Kept.\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
