package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mesa/internal/domain"
)

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Aliases: []string{"order"},
	Short:   "Follow and advance orders (kitchen)",
}

var (
	listTable  string
	listStatus string
)

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFormatter(cmd)
		if err != nil {
			return err
		}
		if listStatus != "" && !domain.OrderStatus(listStatus).Valid() {
			return fmt.Errorf("invalid order status %q", listStatus)
		}

		orders, err := newClient().ListOrders(cmd.Context())
		if err != nil {
			return requireSession(err)
		}

		filtered := make([]domain.Order, 0, len(orders))
		for _, o := range orders {
			if listTable != "" && !strings.EqualFold(o.TableCode, listTable) {
				continue
			}
			if listStatus != "" && string(o.Status) != listStatus {
				continue
			}
			filtered = append(filtered, o)
		}

		rows := make([][]string, 0, len(filtered))
		for _, o := range filtered {
			rows = append(rows, []string{
				strconv.FormatInt(o.ID, 10),
				o.TableCode,
				string(o.Status),
				strconv.Itoa(itemCount(o.Items)),
				strconv.FormatFloat(o.Total, 'f', 2, 64),
				o.CreatedAt.Local().Format(time.DateTime),
			})
		}
		return f.Table(filtered, []string{"ID", "TABLE", "STATUS", "ITEMS", "TOTAL", "CREATED"}, rows)
	},
}

var ordersStatusCmd = &cobra.Command{
	Use:   "status <id> <pending|preparing|ready|delivered>",
	Short: "Set an order's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid order id %q", args[0])
		}
		status := domain.OrderStatus(strings.ToLower(args[1]))
		if !status.Valid() {
			return fmt.Errorf("invalid order status %q", args[1])
		}

		order, err := newClient().SetOrderStatus(cmd.Context(), id, status)
		if err != nil {
			return requireSession(err)
		}
		return f.Fields(order, [][2]string{
			{"ID", strconv.FormatInt(order.ID, 10)},
			{"Table", order.TableCode},
			{"Status", string(order.Status)},
			{"Updated", order.UpdatedAt.Local().Format(time.DateTime)},
		})
	},
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersListCmd, ordersStatusCmd)

	ordersListCmd.Flags().StringVar(&listTable, "table", "", "only orders from this table code")
	ordersListCmd.Flags().StringVar(&listStatus, "status", "", "only orders in this status")
}

func itemCount(items []domain.OrderItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
