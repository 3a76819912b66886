package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mesa/internal/cli/client"
	"mesa/internal/domain"
)

var tablesCmd = &cobra.Command{
	Use:     "tables",
	Aliases: []string{"table"},
	Short:   "Manage tables and their QR tokens (admin)",
}

var tablesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		tables, err := newClient().ListTables(cmd.Context())
		if err != nil {
			return requireSession(err)
		}

		now := time.Now()
		rows := make([][]string, 0, len(tables))
		for i := range tables {
			rows = append(rows, tableRow(&tables[i], now))
		}
		return f.Table(tables, []string{"CODE", "STATUS", "KIND", "EXPIRES", "QR", "NOTE"}, rows)
	},
}

var (
	createCode      string
	createTemporary bool
	createNote      string
)

var tablesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a table and issue its QR token",
	Long: `Register a table. Without --code the server generates one.
Temporary tables expire and stop accepting orders.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		table, err := newClient().CreateTable(cmd.Context(), client.CreateTableRequest{
			Code:        strings.ToUpper(createCode),
			IsTemporary: createTemporary,
			Note:        createNote,
		})
		if err != nil {
			return requireSession(err)
		}
		return f.Fields(table, tableFields(table))
	},
}

var tablesStatusCmd = &cobra.Command{
	Use:   "status <code> <active|inactive>",
	Short: "Activate or deactivate a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		status := domain.TableStatus(strings.ToLower(args[1]))
		if !status.Valid() {
			return fmt.Errorf("invalid table status %q (must be active or inactive)", args[1])
		}

		table, err := newClient().SetTableStatus(cmd.Context(), strings.ToUpper(args[0]), status)
		if err != nil {
			return requireSession(err)
		}
		return f.Fields(table, tableFields(table))
	},
}

var tablesReissueCmd = &cobra.Command{
	Use:   "reissue <code>",
	Short: "Issue a new QR token, invalidating the printed one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		table, err := newClient().ReissueTable(cmd.Context(), strings.ToUpper(args[0]))
		if err != nil {
			return requireSession(err)
		}
		return f.Fields(table, tableFields(table))
	},
}

var tablesDeleteCmd = &cobra.Command{
	Use:     "delete <code>",
	Aliases: []string{"rm"},
	Short:   "Remove a table",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := strings.ToUpper(args[0])
		if err := newClient().DeleteTable(cmd.Context(), code); err != nil {
			return requireSession(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Table %s deleted\n", code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesListCmd, tablesCreateCmd, tablesStatusCmd, tablesReissueCmd, tablesDeleteCmd)

	tablesCreateCmd.Flags().StringVar(&createCode, "code", "", "table code (generated when omitted)")
	tablesCreateCmd.Flags().BoolVar(&createTemporary, "temporary", false, "issue a short-lived token")
	tablesCreateCmd.Flags().StringVar(&createNote, "note", "", "free-form note")
}

func tableKind(t *domain.Table) string {
	if t.Temporary() {
		return "temporary"
	}
	return "permanent"
}

func tableExpiry(t *domain.Table, now time.Time) string {
	if t.ExpiresAt == nil {
		return "-"
	}
	s := t.ExpiresAt.Local().Format(time.DateTime)
	if t.ExpiredAt(now) {
		s += " (expired)"
	}
	return s
}

func tableRow(t *domain.Table, now time.Time) []string {
	qr := t.QRPath
	if qr == "" {
		qr = "-"
	}
	note := t.Note
	if note == "" {
		note = "-"
	}
	return []string{t.Code, string(t.Status), tableKind(t), tableExpiry(t, now), qr, note}
}

func tableFields(t *domain.Table) [][2]string {
	fields := [][2]string{
		{"Code", t.Code},
		{"ID", fmt.Sprint(t.ID)},
		{"Status", string(t.Status)},
		{"Kind", tableKind(t)},
		{"Created", t.CreatedAt.Local().Format(time.DateTime)},
		{"Expires", tableExpiry(t, time.Now())},
	}
	if t.QRPath != "" {
		fields = append(fields, [2]string{"QR image", t.QRPath})
	}
	if t.Note != "" {
		fields = append(fields, [2]string{"Note", t.Note})
	}
	return append(fields, [2]string{"Token", t.Token})
}
