package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/spf13/cobra"
)

func (c *cli) profileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the user profile",
	}

	profileCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.svc.App.Profile()
			if p == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No profile yet. Run 'taxtracker profile set --complete' to onboard.")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	})

	var (
		file     string
		complete bool
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Merge profile fields from a JSON document",
		Args:  cobra.NoArgs,
		Long: `Reads a JSON profile document from --file (or stdin when the file is "-")
and merges it over the current profile. With --complete the result must
name a user type, age and city, and onboarding is marked complete.`,
		Example: `  echo '{"userType":"salaried","basicInfo":{"age":32,"city":"Pune"}}' | taxtracker profile set --complete`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open profile: %w", err)
				}
				defer f.Close()
				r = f
			}

			var p domain.UserProfile
			if current := c.svc.App.Profile(); current != nil {
				p = *current
			}
			dec := json.NewDecoder(r)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&p); err != nil {
				return fmt.Errorf("invalid profile document: %w", err)
			}

			var err error
			if complete {
				err = c.svc.App.CompleteOnboarding(cmd.Context(), p)
			} else {
				err = c.svc.App.SetProfile(cmd.Context(), p)
			}
			if err != nil {
				printFieldErrors(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile saved")
			return nil
		},
	}
	setCmd.Flags().StringVarP(&file, "file", "f", "-", "JSON profile document, - for stdin")
	setCmd.Flags().BoolVar(&complete, "complete", false, "Complete onboarding")
	profileCmd.AddCommand(setCmd)

	return profileCmd
}

func (c *cli) settingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change tax settings",
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the tax settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.svc.App.Settings()
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Regime\t%s\n", s.Regime)
			fmt.Fprintf(tw, "Auto calculate\t%t\n", s.AutoCalculate)
			fmt.Fprintf(tw, "Include projections\t%t\n", s.IncludeProjections)
			fmt.Fprintf(tw, "Reminder days\t%d\n", s.ReminderDays)
			return tw.Flush()
		},
	})

	var (
		regime       string
		auto, proj   bool
		reminderDays int
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change individual tax settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.svc.App.Settings()
			changed := cmd.Flags().Changed
			if changed("regime") {
				s.Regime = domain.Regime(strings.ToLower(strings.TrimSpace(regime)))
			}
			if changed("auto-calculate") {
				s.AutoCalculate = auto
			}
			if changed("projections") {
				s.IncludeProjections = proj
			}
			if changed("reminder-days") {
				s.ReminderDays = reminderDays
			}

			if err := c.svc.App.SetSettings(cmd.Context(), s); err != nil {
				printFieldErrors(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
			return nil
		},
	}
	setCmd.Flags().StringVar(&regime, "regime", "", "old or new")
	setCmd.Flags().BoolVar(&auto, "auto-calculate", true, "Recalculate on every change")
	setCmd.Flags().BoolVar(&proj, "projections", true, "Annualize a partial year")
	setCmd.Flags().IntVar(&reminderDays, "reminder-days", 30, "Days before a deadline to remind (1-90)")
	settingsCmd.AddCommand(setCmd)

	return settingsCmd
}
