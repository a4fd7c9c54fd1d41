package cmds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voyagen/goodytv/internal/entitlement"
	"github.com/voyagen/goodytv/internal/license"
	"github.com/voyagen/goodytv/internal/payment"
)

func NewKeygenCLI() *cobra.Command {
	var issuedAt int64
	cmd := &cobra.Command{
		Use:   "keygen DEVICE_ID",
		Short: "Derive the license key for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if issuedAt != 0 {
				at = time.UnixMilli(issuedAt)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", license.DeriveKey(args[0], at), at.UnixMilli())
			return nil
		},
	}
	cmd.Flags().Int64Var(&issuedAt, "at", 0, "issue time in unix milliseconds (default now)")
	return cmd
}

func NewTrialCLI() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Start the premium trial and show its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.paywall.StartTrial(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !watch {
				st, err := c.paywall.Current(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatStatus(st))
				return nil
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			err = c.paywall.Countdown(ctx, func(st entitlement.Status) {
				fmt.Fprintln(out, formatStatus(st))
				if st.State == entitlement.TrialExpired {
					cancel()
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "print the countdown every second until unlock or expiry")
	return cmd
}

func NewUnlockCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock CODE",
		Short: "Unlock premium with an unlock code or license key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.paywall.TryUnlock(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "unlocked")
			return nil
		},
	}
}

func NewPurchaseCLI() *cobra.Command {
	var (
		baseURL  string
		interval time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Wait for this device's payment and apply the issued license",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			deviceID, err := c.deviceID(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "complete checkout with client reference %s\n", deviceID)

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			st, err := payment.NewStatusClient(baseURL, c.log).Poll(ctx, deviceID, interval)
			if err != nil {
				return fmt.Errorf("waiting for payment: %w", err)
			}
			if err := c.paywall.SetIssuedKey(ctx, st.LicenseKey); err != nil {
				return err
			}
			if err := c.paywall.TryUnlock(ctx, st.LicenseKey); err != nil {
				return err
			}
			fmt.Fprintf(out, "license %s issued %s, premium unlocked\n", st.LicenseKey, st.IssuedAt().Local().Format(time.DateTime))
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "server", "https://goodytv.com", "payment API base URL")
	cmd.Flags().DurationVar(&interval, "interval", payment.DefaultPollInterval, "poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "give up after this long")
	return cmd
}

func formatStatus(st entitlement.Status) string {
	if st.State == entitlement.TrialActive {
		left := st.Remaining.Round(time.Second)
		return fmt.Sprintf("%s %02d:%02d", st.State, int(left.Minutes()), int(left.Seconds())%60)
	}
	return st.State.String()
}
