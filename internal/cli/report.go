package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/attendance-session-service/internal/di"
	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/report"
	"github.com/sandeepkv93/attendance-session-service/internal/service"
)

type reportOptions struct {
	adminEmail string
	month      int
	year       int
	view       string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newReportCommand(opts *options) *cobra.Command {
	ropts := &reportOptions{}
	now := time.Now()
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the organisation summary or analytics for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := strings.ToLower(ropts.view)
			if view != "summary" && view != "analytics" {
				return fmt.Errorf("view must be summary or analytics, got %q", ropts.view)
			}
			if strings.TrimSpace(ropts.adminEmail) == "" {
				return errors.New("--admin-email is required")
			}
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			core, err := di.InitializeCore(cfg, logger)
			if err != nil {
				return err
			}
			defer core.Stop()

			ctx := cmd.Context()
			admin, err := core.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(ropts.adminEmail)))
			if err != nil {
				return fmt.Errorf("resolve admin: %w", err)
			}
			actor := service.Actor{UserID: admin.ID, Role: admin.Role}

			title := fmt.Sprintf("Attendance %s %02d/%d", view, ropts.month, ropts.year)
			if view == "summary" {
				summary, err := core.Reports.OrgSummary(ctx, actor, ropts.month, ropts.year)
				if err != nil {
					return err
				}
				return renderSummary(cmd.OutOrStdout(), title, summary.Sorted())
			}
			analytics, err := core.Reports.Analytics(ctx, actor, ropts.month, ropts.year)
			if err != nil {
				return err
			}
			return renderAnalytics(cmd.OutOrStdout(), title, analytics.Sorted())
		},
	}
	cmd.Flags().StringVar(&ropts.adminEmail, "admin-email", "", "email of the admin the report runs as")
	cmd.Flags().IntVar(&ropts.month, "month", int(now.Month()), "month, 1-12")
	cmd.Flags().IntVar(&ropts.year, "year", now.Year(), "year")
	cmd.Flags().StringVar(&ropts.view, "view", "summary", "summary or analytics")
	return cmd
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderSummary(w io.Writer, title string, rows []report.UserSummary) error {
	t := newTable("User", "Name", "Email", "Days", "Hours")
	for _, r := range rows {
		t.Row(userCell(r.UserID), r.Name, r.Email, strconv.Itoa(r.TotalDays), r.TotalHours.String())
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(title), t.Render())
	return err
}

func renderAnalytics(w io.Writer, title string, rows []report.UserAnalytics) error {
	t := newTable("User", "Name", "Days", "Hours", "Avg in", "Avg out")
	for _, r := range rows {
		t.Row(userCell(r.UserID), r.Name, strconv.Itoa(r.TotalDays), r.TotalHours.String(), r.AvgCheckInHour.String(), r.AvgCheckOutHour.String())
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(title), t.Render())
	return err
}

func userCell(id domain.UserID) string {
	return strconv.FormatUint(uint64(id), 10)
}
