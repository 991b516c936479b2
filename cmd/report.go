package cmd

import (
	"time"

	"mercagasto/domain"
	"mercagasto/pkg/jwt"
	"mercagasto/pkg/report"

	"github.com/spf13/cobra"
)

var (
	reportSend bool
	reportTo   string
	reportRaw  bool
)

var reportCmd = &cobra.Command{
	Use:       "report [weekly|monthly]",
	Short:     "Print or email the spending report",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(domain.PeriodWeekly), string(domain.PeriodMonthly)},
	RunE: func(cmd *cobra.Command, args []string) error {
		period := domain.PeriodWeekly
		if len(args) == 1 {
			period = domain.ReportPeriod(args[0])
		}

		svc, err := services()
		if err != nil {
			return err
		}

		if reportSend {
			r, err := svc.Reports.Send(cmd.Context(), domain.SendReportRequest{Period: string(period), To: reportTo})
			if err != nil {
				return err
			}
			printf(cmd, "%s sent\n", report.Subject(r))
			return nil
		}

		r, err := svc.Reports.Build(cmd.Context(), period)
		if err != nil {
			return err
		}
		md := report.RenderMarkdown(r)
		if reportRaw {
			printf(cmd, "%s", md)
			return nil
		}
		out, err := report.RenderTerminal(md, 100)
		if err != nil {
			return err
		}
		printf(cmd, "%s", out)
		return nil
	},
}

var (
	tokenID  string
	tokenTTL time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := jwt.NewJWTService().GenerateToken(tokenID, domain.RoleOperator, tokenTTL)
		if err != nil {
			return err
		}
		printf(cmd, "%s\n", token)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportSend, "send", false, "Email the report instead of printing it")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Recipient, defaults to REPORT_RECIPIENT")
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "Print the markdown source")

	tokenCmd.Flags().StringVar(&tokenID, "id", "cli", "Operator id stored in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", jwt.DefaultTTL, "Token lifetime")
}
