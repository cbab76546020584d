package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vida-melhor/internal/app/navigation"
)

func goCmd(d *device) *cobra.Command {
	return &cobra.Command{
		Use:   "go <screen>",
		Short: "Navigate to a screen (home, profile, caretaker, pharmacies, store, consultations, medications)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := navigation.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}
			if err := d.nav.Navigate(cmd.Context(), sc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Screen: %s\n", d.nav.Current())
			return nil
		},
	}
}

func backCmd(d *device) *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Go back to the previous screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := d.nav.Back(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Screen: %s\n", sc)
			return nil
		},
	}
}

func homeCmd(d *device) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show the home screen: medicines, pharmacies and the pending dose",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			d.show(ctx, navigation.ScreenHome)

			home := d.dashboard.Load(ctx, v)
			out := cmd.OutOrStdout()

			if home.Reminder.Pending != nil {
				m := home.Reminder.Pending
				fmt.Fprintf(out, "Hora do remédio: %s (%s) [id %d]\n\n", m.Nome, m.Dose, m.ID)
			}

			fmt.Fprintln(out, "Medicamentos")
			if home.MedicinesErr != nil {
				fmt.Fprintf(out, "  unavailable: %v\n", home.MedicinesErr)
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, m := range home.Medicines {
					fmt.Fprintf(tw, "  %d\t%s\t%s\testoque %d\n", m.ID, m.Nome, m.Dose, m.Estoque)
				}
				_ = tw.Flush()
			}

			fmt.Fprintln(out, "\nFarmácias")
			if home.PharmaciesErr != nil {
				fmt.Fprintf(out, "  unavailable: %v\n", home.PharmaciesErr)
				return nil
			}
			for _, p := range home.Pharmacies {
				fmt.Fprintf(out, "  %s - %s\n", p.Name, p.Address)
			}
			return nil
		},
	}
}
