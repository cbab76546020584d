package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vida-melhor/internal/app/navigation"
	"vida-melhor/internal/domain/consultations"
	"vida-melhor/internal/domain/medicines"
)

const dateLayout = "2006-01-02 15:04"

func medsCmd(d *device) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meds",
		Short: "Medicines and dose reminders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List medicines you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			d.show(ctx, navigation.ScreenMedications)

			items, err := d.medicines.ListForViewer(ctx, v)
			if err != nil {
				return err
			}
			now := time.Now()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, m := range items {
				freq := "-"
				if m.FrequenciaHoras != nil && *m.FrequenciaHoras > 0 {
					freq = fmt.Sprintf("%dh", *m.FrequenciaHoras)
				}
				due := ""
				if m.IsDue(now) {
					due = "pendente"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\testoque %d\t%s\t%s\n", m.ID, m.Nome, m.Dose, m.Estoque, freq, due)
			}
			return tw.Flush()
		},
	}

	due := &cobra.Command{
		Use:   "due",
		Short: "Show the pending dose, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			r, err := d.reminders.Current(ctx, v)
			if err != nil {
				return err
			}
			if r.Pending == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nenhuma dose pendente")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Hora do remédio: %s (%s) [id %d]\n", r.Pending.Nome, r.Pending.Dose, r.Pending.ID)
			return nil
		},
	}

	confirm := &cobra.Command{
		Use:   "confirm <medicine-id>",
		Short: "Confirm the dose was taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid medicine id %q", args[0])
			}
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			next, m, err := d.reminders.Confirm(ctx, v, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dose registrada: %s, estoque %d\n", m.Nome, m.Estoque)
			if next.Pending != nil {
				fmt.Fprintf(out, "Próxima pendente: %s (%s) [id %d]\n", next.Pending.Nome, next.Pending.Dose, next.Pending.ID)
			}
			return nil
		},
	}

	var in medicines.CreateInput
	var freq int
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a medicine (caretakers may pass --for <elder-id>)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			if freq > 0 {
				in.FrequenciaHoras = &freq
			}
			m, err := d.medicines.Create(ctx, v, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Medicamento %d criado: %s\n", m.ID, m.Nome)
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&in.Nome, "nome", "", "medicine name")
	f.StringVar(&in.Dose, "dose", "", "dose (free text)")
	f.IntVar(&in.Estoque, "estoque", 0, "units in stock")
	f.IntVar(&freq, "freq", 0, "hours between doses (0 = no reminder)")
	f.StringVar(&in.OwnerUserID, "for", "", "elder id (caretakers only)")
	_ = add.MarkFlagRequired("nome")
	_ = add.MarkFlagRequired("dose")

	cmd.AddCommand(list, due, confirm, add)
	return cmd
}

func eldersCmd(d *device) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elders",
		Short: "Link and unlink elders (caretakers only)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List elders and their link status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			d.show(ctx, navigation.ScreenCaretaker)

			items, err := d.caretakers.ListLinkable(ctx, v.UserID())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Profile.ID, e.Profile.Name, e.Status)
			}
			return tw.Flush()
		},
	}

	link := &cobra.Command{
		Use:   "link <elder-id>",
		Short: "Become the caretaker of an elder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			e, err := d.caretakers.Link(ctx, v.UserID(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.Profile.Name, e.Status)
			return nil
		},
	}

	unlink := &cobra.Command{
		Use:   "unlink <elder-id>",
		Short: "Stop being the caretaker of an elder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			e, err := d.caretakers.Unlink(ctx, v.UserID(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.Profile.Name, e.Status)
			return nil
		},
	}

	cmd.AddCommand(list, link, unlink)
	return cmd
}

func consultasCmd(d *device) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "consultas",
		Aliases: []string{"consultations"},
		Short:   "Scheduled consultations",
	}

	var upcoming bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List consultations you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			d.show(ctx, navigation.ScreenConsultations)

			var items []consultations.Consultation
			if upcoming {
				items, err = d.consultations.Upcoming(ctx, v)
			} else {
				items, err = d.consultations.ListForViewer(ctx, v, consultations.Range{})
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					c.ID, c.DataHora.Local().Format(dateLayout), c.Nome, c.Tipo, c.Medico, c.Especialidade)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&upcoming, "upcoming", false, "only from now on")

	var in consultations.CreateInput
	var when, tipo string
	add := &cobra.Command{
		Use:   "add",
		Short: "Schedule a consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := d.viewer(ctx)
			if err != nil {
				return err
			}
			at, err := time.ParseInLocation(dateLayout, strings.TrimSpace(when), time.Local)
			if err != nil {
				return errors.New(`--at must look like "2025-03-10 14:30"`)
			}
			in.DataHora = at
			in.Tipo = consultations.Tipo(tipo)

			c, err := d.consultations.Create(ctx, v, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Consulta %d agendada para %s\n", c.ID, c.DataHora.Local().Format(dateLayout))
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&in.Nome, "nome", "", "patient name")
	f.StringVar(&when, "at", "", `date and time, "YYYY-MM-DD HH:MM" local`)
	f.StringVar(&tipo, "tipo", string(consultations.TipoPresencial), "presencial or telemedicina")
	f.StringVar(&in.Medico, "medico", "", "doctor")
	f.StringVar(&in.Especialidade, "especialidade", "", "specialty")
	f.StringVar(&in.OwnerUserID, "for", "", "elder id (caretakers only)")
	_ = add.MarkFlagRequired("nome")
	_ = add.MarkFlagRequired("at")

	cmd.AddCommand(list, add)
	return cmd
}
