package commands

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/storefront/internal/catalogclient"
	"github.com/xenking/storefront/internal/domain/product"
)

func catalogCmd(s *shop) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse products",
	}
	cmd.AddCommand(catalogListCmd(s), catalogShowCmd(s))
	return cmd
}

func catalogListCmd(s *shop) *cobra.Command {
	var (
		filter product.Filter
		order  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			products, err := s.session.Refresh(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "catalog unavailable")
			}
			products = filter.Apply(products)
			product.Sort(products, product.Order(order))

			out := cmd.OutOrStdout()
			if len(products) == 0 {
				printf(out, "No products match.\n")
				return nil
			}
			tw := table(out)
			printf(tw, "ID\tNAME\tPRICE\tSTOCK\tWISHLIST\n")
			for _, p := range products {
				wish := ""
				if s.session.Wishlist.Contains(p.ID) {
					wish = "*"
				}
				printf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, money(p.DiscountedPrice(), p.Currency), p.Status(), wish)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			facets := product.CollectFacets(products)
			printf(out, "\nCharacters: %s\nRarities: %s\nColors: %s\n",
				strings.Join(facets.Characters, ", "),
				strings.Join(facets.Rarities, ", "),
				strings.Join(facets.Colors, ", "),
			)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Search, "search", "", "match name or description")
	f.StringVar(&filter.Character, "character", "", "only this character")
	f.StringVar(&filter.Rarity, "rarity", "", "only this rarity")
	f.StringVar(&filter.Color, "color", "", "only products available in this color")
	f.StringVar(&order, "sort", "none", "none, price-asc or price-desc")
	return cmd
}

func catalogShowCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := s.session.Catalog.GetByID(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s (%s)\n", p.Name, p.ID)
			if p.Description != "" {
				printf(out, "%s\n", p.Description)
			}
			if p.Reduction > 0 {
				printf(out, "Price: %s (was %s, -%d%%)\n", money(p.DiscountedPrice(), p.Currency), money(p.Price, p.Currency), p.Reduction)
			} else {
				printf(out, "Price: %s\n", money(p.Price, p.Currency))
			}
			printf(out, "Stock: %d (%s)\n", p.Stock, p.Status())
			printf(out, "Colors: %s\n", strings.Join(p.Characteristics.Colors, ", "))
			printf(out, "Character: %s\nRarity: %s\n", p.Characteristics.Character, p.Characteristics.Rarity)

			keys := make([]string, 0, len(p.Characteristics.Other))
			for k := range p.Characteristics.Other {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				printf(out, "%s: %s\n", k, p.Characteristics.Other[k])
			}
			if s.session.Wishlist.Contains(p.ID) {
				printf(out, "In your wishlist\n")
			}

			all, err := catalogclient.ListOrEmpty(ctx, s.session.Catalog)
			if err != nil {
				s.lg.Debug("Similar products unavailable")
			}
			if similar := product.Similar(all, p, product.SimilarLimit); len(similar) > 0 {
				printf(out, "\nYou may also like:\n")
				for _, o := range similar {
					printf(out, "  %s  %s  %s\n", o.ID, o.Name, money(o.DiscountedPrice(), o.Currency))
				}
			}
			return nil
		},
	}
}
