package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/noah-isme/class-schedule-api/internal/app"
	"github.com/noah-isme/class-schedule-api/internal/models"
	"github.com/noah-isme/class-schedule-api/internal/service"
	"github.com/noah-isme/class-schedule-api/pkg/config"
)

var (
	tokenRole string
	tokenUser string
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every class and processed document from the store",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the store",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for the guarded API routes",
	Long: `Signs a JWT with the configured secret and issuer. The token is printed on
stdout so it can be captured by scripts.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleAdmin), "Role claim: ADMIN, TEACHER or VIEWER")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id claim (random when empty)")
}

func runClear(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		removed, err := a.Schedule.Clear(ctx)
		if err != nil {
			return err
		}
		if removed {
			fmt.Fprintln(cmd.OutOrStdout(), "schedule store cleared")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "schedule store is already empty")
		}
		return nil
	})
}

func runStats(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		stats, err := a.Schedule.Stats(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "records:   %d\n", stats.TotalRecords)
		fmt.Fprintf(out, "documents: %d\n", stats.TotalDocuments)
		fmt.Fprintf(out, "teachers:  %d\n", stats.Teachers)
		fmt.Fprintf(out, "sheets:    %d\n", stats.Sheets)
		if verbose {
			for _, name := range stats.ProcessedFiles {
				fmt.Fprintf(out, "  %s\n", name)
			}
		}
		return nil
	})
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(tokenRole)))
	switch role {
	case models.RoleAdmin, models.RoleTeacher, models.RoleViewer:
	default:
		return fmt.Errorf("unknown role %q", tokenRole)
	}
	user := tokenUser
	if user == "" {
		user = uuid.NewString()
	}

	auth := service.NewAuthService(service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	token, expiresAt, err := auth.IssueToken(user, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "user %s, role %s, expires %s\n", user, role, expiresAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
