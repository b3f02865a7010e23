package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// lineIndex converts a 1-based line number argument to a cart index.
func lineIndex(arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Errorf("line must be a number, got %q", arg)
	}
	if i < 1 || i > n {
		return 0, errors.Errorf("no cart line %d (cart has %d)", i, n)
	}
	return i - 1, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
