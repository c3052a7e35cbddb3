package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/service"
)

func newBalancesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show who owes whom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				summary, err := svc.Balances(ctx)
				if err != nil {
					return err
				}
				printBalances(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func printBalances(out io.Writer, summary *service.BalanceSummary) {
	if len(summary.Edges) == 0 {
		fmt.Fprintln(out, "All settled up.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, e := range summary.Edges {
			fmt.Fprintf(w, "%s\towes\t%s\t%s\n", e.Debtor, e.Creditor, money.Format(e.AmountCents))
		}
		w.Flush()
		fmt.Fprintf(out, "\nOutstanding: %s\n", money.Format(summary.OutstandingCents))
	}

	if len(summary.Members) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tNET")
	for _, m := range summary.Members {
		fmt.Fprintf(w, "%s\t%s\n", m.Name, money.Format(m.NetCents))
	}
	w.Flush()
}

func newUsersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage ledger participants",
	}

	var email string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				user, err := svc.CreateUser(ctx, service.CreateUserRequest{FullName: args[0], Email: email})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %d: %s\n", user.UserID, user.FullName)
				return nil
			})
		},
	}
	add.Flags().StringVar(&email, "email", "", "contact email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				users, err := svc.ListUsers(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL")
				for _, u := range users {
					fmt.Fprintf(w, "%d\t%s\t%s\n", u.UserID, u.FullName, u.Email)
				}
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newItemsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage purchased line items",
	}

	var req service.CreateLineItemRequest
	var paidBy int64
	add := &cobra.Command{
		Use:   "add NAME PRICE",
		Short: "Add a purchased item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ItemName = args[0]
			req.Price = args[1]
			req.PaidBy = models.ParticipantID(paidBy)
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				item, err := svc.CreateLineItem(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created line item %d: %s %s\n", item.LineID, item.ItemName, item.Price.StringFixed(2))
				return nil
			})
		},
	}
	add.Flags().Int64Var(&paidBy, "paid-by", 0, "user id of the payer")
	add.Flags().StringVar(&req.ReceiptID, "receipt", "", "receipt id")
	add.Flags().StringVar(&req.StoreName, "store", "", "store name")
	add.Flags().StringVar(&req.PurchaseDate, "date", "", "purchase date (YYYY-MM-DD)")
	_ = add.MarkFlagRequired("paid-by")

	var receipt string
	list := &cobra.Command{
		Use:   "list",
		Short: "List line items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				items, err := svc.ListLineItems(ctx, receipt)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tRECEIPT\tITEM\tPRICE\tPAID BY")
				for _, item := range items {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", item.LineID, item.ReceiptID, item.ItemName, item.Price.StringFixed(2), item.PaidBy)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&receipt, "receipt", "", "only items from this receipt")

	del := &cobra.Command{
		Use:   "delete LINE_ID",
		Short: "Delete a line item and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				if err := svc.DeleteLineItem(ctx, lineID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted line item %d\n", lineID)
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

func newAssignCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "assign LINE_ID USER_ID...",
		Short: "Make users responsible for a share of a line item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := parseID(args[0])
			if err != nil {
				return err
			}
			userIDs := make([]models.ParticipantID, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				userIDs = append(userIDs, models.ParticipantID(id))
			}

			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				for _, userID := range userIDs {
					a, err := svc.AssignItem(ctx, lineID, userID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Assigned user %d to line item %d (mapping %d)\n", userID, lineID, a.MappingID)
				}
				return nil
			})
		},
	}
}

func newSettleCmd(opts *options) *cobra.Command {
	var req service.RecordSettlementRequest
	var from, to int64

	cmd := &cobra.Command{
		Use:   "settle AMOUNT",
		Short: "Record a payment from one user to another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Amount = args[0]
			req.FromUserID = models.ParticipantID(from)
			req.ToUserID = models.ParticipantID(to)
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.LedgerService) error {
				res, err := svc.RecordSettlement(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded settlement %d: %d paid %d %s (%d assignments marked paid)\n",
					res.Settlement.SettlementID, res.Settlement.FromUserID, res.Settlement.ToUserID,
					money.Format(res.Settlement.AmountCents), len(res.MarkedPaid))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "user id of the payer")
	cmd.Flags().Int64Var(&to, "to", 0, "user id of the recipient")
	cmd.Flags().StringVar(&req.Date, "date", "", "settlement date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&req.Note, "note", "", "optional note")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", service.ErrInvalidArgument, s)
	}
	return id, nil
}
