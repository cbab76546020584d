package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vida-melhor/internal/app/navigation"
	"vida-melhor/internal/domain/catalog"
)

func catalogCmd(d *device) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse partner pharmacies and the store",
	}

	pharmacies := &cobra.Command{
		Use:   "pharmacies [search]",
		Short: "List active pharmacies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d.show(ctx, navigation.ScreenPharmacies)

			items, err := d.catalog.ListPharmacies(ctx, firstArg(args))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Address, p.Contact)
			}
			return tw.Flush()
		},
	}

	var q catalog.StoreQuery
	store := &cobra.Command{
		Use:   "store [search]",
		Short: "Search medicines for sale",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d.show(ctx, navigation.ScreenStore)

			q.Q = firstArg(args)
			items, err := d.catalog.SearchStore(ctx, q)
			if err != nil {
				return err
			}
			printStore(cmd.OutOrStdout(), items)
			return nil
		},
	}
	store.Flags().StringVar(&q.PharmacyID, "pharmacy", "", "only items of this pharmacy")
	store.Flags().IntVar(&q.Limit, "limit", 0, "max items (0 = default)")

	cmd.AddCommand(pharmacies, store)
	return cmd
}

func printStore(out io.Writer, items []catalog.StoreItem) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		stock := strconv.Itoa(it.Stock)
		if !it.InStock() {
			stock = "esgotado"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Name, formatCents(it.PriceInCents), stock)
	}
	_ = tw.Flush()
}

func cartCmd(d *device) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local cart",
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Add a store item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := d.catalog.GetStoreItem(ctx, args[0])
			if err != nil {
				return err
			}
			if !it.InStock() {
				return fmt.Errorf("%s is out of stock", it.Name)
			}
			d.cart.AddItem(ctx, it.ID, it.Name, it.PriceInCents, qty)
			printCart(cmd.OutOrStdout(), d)
			return nil
		},
	}
	add.Flags().IntVarP(&qty, "quantity", "q", 1, "quantity to add")

	remove := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.cart.RemoveItem(cmd.Context(), args[0])
			printCart(cmd.OutOrStdout(), d)
			return nil
		},
	}

	clearCart := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			d.cart.Clear(cmd.Context())
			printCart(cmd.OutOrStdout(), d)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show cart contents and total",
		RunE: func(cmd *cobra.Command, args []string) error {
			printCart(cmd.OutOrStdout(), d)
			return nil
		},
	}

	cmd.AddCommand(add, remove, clearCart, show)
	return cmd
}

func printCart(out io.Writer, d *device) {
	items := d.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\tx%d\t%s\n", it.ID, it.Name, it.Quantity, formatCents(it.PriceInCents*int64(it.Quantity)))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "Total: %s (%d item(s))\n", formatCents(d.cart.Total()), d.cart.Count())
}

// formatCents muestra reales con coma decimal.
func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, c/100, c%100)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
