package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vida-melhor/internal/app/account"
	"vida-melhor/internal/app/navigation"
)

func loginCmd(d *device) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := d.accounts.SignIn(ctx, email, password)
			if err != nil {
				return err
			}
			// SIGNED_IN lo toma el bootstrapper: completa el perfil y pasa a home
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", s.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd(d *device) *cobra.Command {
	var in account.SignUpInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (elder by default, --carer for caretakers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := d.accounts.SignUp(ctx, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account created for %s\n", in.Email)
			switch {
			case res.NeedsConfirmation:
				fmt.Fprintln(out, "Check your inbox to confirm the email, then run `vidamelhor login`.")
				d.show(ctx, navigation.ScreenLogin)
			case !res.ProfileSaved:
				fmt.Fprintln(out, "Profile will be completed on next sign-in.")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "full name")
	f.StringVarP(&in.Email, "email", "e", "", "account email")
	f.StringVarP(&in.Password, "password", "p", "", "password (min 6 characters)")
	f.StringVar(&in.CPF, "cpf", "", "CPF (digits only are kept)")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	f.BoolVar(&in.Carer, "carer", false, "register as caretaker")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(d *device) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := d.accounts.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func statusCmd(d *device) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, current screen and cart summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			s, err := d.gw.GetSession(ctx)
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(out, "Session: signed out")
			} else {
				role := "elder"
				if v, err := d.viewer(ctx); err == nil && v.IsCaretaker() {
					role = "caretaker"
				}
				fmt.Fprintf(out, "Session: %s (%s, %s)\n", s.User.Email, s.User.ID, role)
			}
			fmt.Fprintf(out, "Screen:  %s\n", d.nav.Current())
			if d.lastPage != "" && d.lastPage != d.nav.Current() {
				fmt.Fprintf(out, "Last:    %s\n", d.lastPage)
			}
			fmt.Fprintf(out, "Cart:    %d item(s), %s\n", d.cart.Count(), formatCents(d.cart.Total()))
			return nil
		},
	}
}
