package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/qrave1/RoomChat/internal/application/config"
	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/middleware"
)

var (
	tokenUserID string
	tokenName   string
	tokenTTL    time.Duration
)

// tokenCmd выпускает токен для локальной разработки: учётные записи живут во внешнем провайдере.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development JWT for a principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		userID := uuid.New()
		if tokenUserID != "" {
			if userID, err = uuid.Parse(tokenUserID); err != nil {
				return fmt.Errorf("invalid --user-id: %w", err)
			}
		}

		token, err := middleware.IssueToken(
			cfg.JWTSecret,
			models.Principal{ID: userID, DisplayName: tokenName},
			tokenTTL,
		)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)

		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "principal id (random when empty)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	_ = tokenCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(tokenCmd)
}
