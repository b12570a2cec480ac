package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/sjperalta/village-settlement-api/internal/database"
	"github.com/sjperalta/village-settlement-api/internal/middleware"
	"github.com/sjperalta/village-settlement-api/internal/statement"
	"github.com/sjperalta/village-settlement-api/pkg/money"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := database.Migrate(e.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute outstanding balances from history and report drift",
	Example: `  settlectl verify
  settlectl verify --invoice 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		invoiceID, _ := cmd.Flags().GetUint("invoice")

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		out := cmd.OutOrStdout()
		if invoiceID != 0 {
			v, err := e.svcs.InvoiceLedger.VerifyInvoice(cmd.Context(), invoiceID)
			if v == nil {
				return err
			}
			fmt.Fprintf(out, "invoice %d: total %s cached %s expected %s status %s ok=%t\n",
				v.InvoiceID, v.Total, v.Cached, v.Expected, v.Status, v.OK)
			for _, p := range v.Problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return err
		}

		checked, drifted, err := e.svcs.InvoiceLedger.VerifyAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "checked %d invoices, %d drifted\n", checked, len(drifted))
		for _, v := range drifted {
			fmt.Fprintf(out, "invoice %d: cached %s expected %s %v\n", v.InvoiceID, v.Cached, v.Expected, v.Problems)
		}
		if len(drifted) > 0 {
			return fmt.Errorf("%d invoices failed verification", len(drifted))
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Parse a bank statement locally and print its rows",
	Long: `preview parses a CSV or XLSX statement the same way the upload endpoint
does and prints the rows and parse errors. It does not touch the database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		res, err := statement.Parse(filepath.Base(args[0]), data)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LINE\tDATE\tAMOUNT\tDESCRIPTION")
		for _, row := range res.Rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Line, row.Date.Format("2006-01-02"), money.Format(row.Amount), row.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for _, rowErr := range res.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "line %d: %s\n", rowErr.Line, rowErr.Message)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rows, total %s, fingerprint %s\n", len(res.Rows), money.Format(res.Total), statement.Fingerprint(data))
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate PAYIN_ID",
	Short: "Show promotion suggestions for a pay-in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payinID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid pay-in id %q", args[0])
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		suggestions, err := e.svcs.Promotion.Evaluate(cmd.Context(), uint(payinID))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tELIGIBLE\tCREDIT\tREASON")
		for _, s := range suggestions {
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", s.PromotionCode, s.Eligible, money.Format(s.SuggestedCredit), s.Reason)
		}
		return w.Flush()
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Sign a bearer token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			secret = "dev-secret-change-in-production"
		}

		claims := middleware.Claims{UserID: uint(userID), Role: role}
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
		token, err := middleware.IssueToken(secret, claims)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	verifyCmd.Flags().Uint("invoice", 0, "Verify a single invoice")
	tokenCmd.Flags().String("role", middleware.RoleTreasurer, "Role claim (admin, treasurer, resident)")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(migrateCmd, verifyCmd, previewCmd, evaluateCmd, tokenCmd)
}
