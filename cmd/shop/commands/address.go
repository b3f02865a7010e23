package commands

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

func addressCmd(s *shop) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Find and select a shipping address",
	}
	cmd.AddCommand(addressSearchCmd(s), addressSelectCmd(s), addressSaveCmd(s), addressShowCmd(s))
	return cmd
}

func addressSearchCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Suggest addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			addrs, err := s.session.Search.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				s.lg.Warn("Address lookup failed")
			}
			if len(addrs) == 0 {
				printf(out, "No suggestions.\n")
				return nil
			}
			for _, a := range addrs {
				printf(out, "%d. %s\n", a.ID, a.Address)
			}
			return nil
		},
	}
}

func addressSelectCmd(s *shop) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "select <address>",
		Short: "Use an address for checkout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr := strings.Join(args, " ")
			if save {
				if err := s.session.Addresses.SetSave(ctx, true); err != nil {
					return err
				}
			}
			if err := s.session.Addresses.Select(ctx, addr); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "Shipping to %s.\n", addr)
			// Every shop invocation is a new session.
			if !s.session.Addresses.Saving() {
				printf(out, "Not remembered; pass --save or run \"shop address save on\" to keep it.\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "remember the address between runs")
	return cmd
}

func addressSaveCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:       "save <on|off>",
		Short:     "Remember the selected address between runs",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var save bool
			switch args[0] {
			case "on":
				save = true
			case "off":
			default:
				return errors.Errorf("expected on or off, got %q", args[0])
			}
			if err := s.session.Addresses.SetSave(cmd.Context(), save); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Saving address: %s.\n", args[0])
			return nil
		},
	}
}

func addressShowCmd(s *shop) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the selected address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			addr, ok := s.session.Addresses.Selected()
			if !ok {
				printf(out, "No address selected.\n")
				return nil
			}
			printf(out, "%s (saved: %t)\n", addr, s.session.Addresses.Saving())
			return nil
		},
	}
}
