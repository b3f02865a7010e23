package commands

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/product"
)

func checkoutCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place the order for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			outcome, err := s.session.Checkout.Submit(cmd.Context())

			var submitErr *checkout.SubmitError
			if errors.As(err, &submitErr) {
				printf(out, "Checkout interrupted at line %d (%s).\n", submitErr.Index+1, submitErr.ProductID)
				if len(submitErr.Submitted) > 0 {
					printf(out, "Already reserved:\n")
					printLineOutcomes(out, submitErr.Submitted)
				}
				return err
			}
			if err != nil {
				return err
			}

			printf(out, "Order %s confirmed, shipping to %s.\n", outcome.OrderRef, outcome.Address)
			printLineOutcomes(out, outcome.Lines)

			t := outcome.Totals.Display()
			currency := ""
			if len(outcome.Lines) > 0 {
				currency = outcome.Lines[0].Line.Currency
			}
			printf(out, "Total: %s\n", money(t.Total, currency))

			if problems := outcome.Problems(); len(problems) > 0 {
				printf(out, "%d line(s) could not be reserved.\n", len(problems))
			}
			return nil
		},
	}
}

func printLineOutcomes(w io.Writer, lines []checkout.LineOutcome) {
	tw := table(w)
	printf(tw, "PRODUCT\tCOLOR\tQTY\tRESULT\n")
	for _, l := range lines {
		printf(tw, "%s\t%s\t%d\t%s\n", l.Line.Name, l.Line.Color, l.Line.Quantity, lineResult(l))
	}
	_ = tw.Flush()
}

func lineResult(l checkout.LineOutcome) string {
	switch {
	case l.Err == nil:
		return "reserved"
	case errors.Is(l.Err, product.ErrInsufficientStock):
		return "insufficient stock"
	case errors.Is(l.Err, product.ErrNotFound):
		return "no longer sold"
	default:
		return l.Err.Error()
	}
}
