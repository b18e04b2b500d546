package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"parishledger/internal/core"
	"parishledger/internal/export"
	"parishledger/internal/ledger"
	"parishledger/internal/snapshot"
)

type rootOptions struct {
	file     string
	today    string
	priority []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect and export parish ledger snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "snapshot file to read")
	root.PersistentFlags().StringVar(&opts.today, "today", "", "reference date as YYYY-MM-DD (default: local today)")
	root.PersistentFlags().StringSliceVar(&opts.priority, "income-priority", ledger.DefaultIncomePriority, "income categories listed first on a date")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(
		newValidateCmd(opts),
		newSummaryCmd(opts),
		newLedgerCmd(opts),
		newMembersCmd(opts),
		newExportCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (core.State, error) {
	f, err := os.Open(o.file)
	if err != nil {
		return core.State{}, err
	}
	defer f.Close()
	st, err := snapshot.Decode(f)
	if err != nil {
		return core.State{}, fmt.Errorf("%s: %w", o.file, err)
	}
	return st, nil
}

func (o *rootOptions) referenceDate() (core.Date, error) {
	if o.today == "" {
		return core.DateOf(time.Now()), nil
	}
	return core.ParseDate(o.today)
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the snapshot file can be imported",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d members, %d transactions\n", len(st.Members), len(st.Transactions))
			return nil
		},
	}
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print balances and weekly and yearly totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.load()
			if err != nil {
				return err
			}
			today, err := opts.referenceDate()
			if err != nil {
				return err
			}
			if year == 0 {
				year = today.Year()
			}
			printSummary(cmd.OutOrStdout(), st, today, year)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year for the yearly totals (default: year of --today)")
	return cmd
}

func printSummary(w io.Writer, st core.State, today core.Date, year int) {
	split := ledger.SplitBalance(st.Transactions, today)
	sum := ledger.Aggregate(st.Transactions, today, year)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "기준일\t%s %s\n", today, ledger.Weekday(today))
	fmt.Fprintf(tw, "전일 잔액\t%s\n", core.FormatAmount(split.Previous))
	fmt.Fprintf(tw, "금일 증감\t%s\n", core.FormatAmount(split.TodaysChange))
	fmt.Fprintf(tw, "현재 잔액\t%s\n", core.FormatAmount(split.Today))
	fmt.Fprintf(tw, "주간 (%s~)\t입금 %s\t출금 %s\n", sum.WeekStart, core.FormatAmount(sum.Weekly.Income), core.FormatAmount(sum.Weekly.Expense))
	fmt.Fprintf(tw, "%d년\t입금 %s\t출금 %s\n", sum.SelectedYear, core.FormatAmount(sum.Yearly.Income), core.FormatAmount(sum.Yearly.Expense))
	for _, a := range ledger.SortedAmounts(sum.YearlyBreakdown.Income) {
		fmt.Fprintf(tw, "  입금 %s\t%s\n", a.Name, core.FormatAmount(a.Amount))
	}
	for _, a := range ledger.SortedAmounts(sum.YearlyBreakdown.Expense) {
		fmt.Fprintf(tw, "  출금 %s\t%s\n", a.Name, core.FormatAmount(a.Amount))
	}
	_ = tw.Flush()
}

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print the ledger in display order with running balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.load()
			if err != nil {
				return err
			}
			entries := ledger.NewOrderer(opts.priority, st.Members).RunningBalances(st.Transactions)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			names := ledger.NewMemberNames(st.Members)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "날짜\t구분\t항목\t성도\t금액\t잔액\t비고")
			for _, e := range entries {
				tx := e.Transaction
				kind, member := "출금", export.Dash
				if tx.Type == core.Income {
					kind = "입금"
				}
				if tx.Type == core.Income || tx.MemberID != nil {
					member = names.Name(tx.MemberID)
				}
				fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					tx.Date, ledger.Weekday(tx.Date), kind, ledger.RenderTagged(tx.Category), member,
					core.FormatAmount(tx.Amount), core.FormatAmount(e.Balance), tx.Memo)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print only the first n rows")
	return cmd
}

func newMembersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List members grouped by initial consonant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range ledger.GroupByInitial(ledger.SortMembers(st.Members)) {
				names := make([]string, len(g.Members))
				for i, m := range g.Members {
					names[i] = m.Name + " " + m.Position
				}
				fmt.Fprintf(out, "%s (%d): %s\n", g.Label, len(g.Members), strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		period string
		year   int
		months []int
		weeks  []string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the selected period as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.load()
			if err != nil {
				return err
			}
			p, err := export.ParsePeriod(period)
			if err != nil {
				return err
			}
			sel := export.Selection{Period: p, Year: year, Months: months}
			for _, w := range weeks {
				d, err := core.ParseDate(w)
				if err != nil {
					return err
				}
				sel.WeekStarts = append(sel.WeekStarts, d)
			}
			rows, err := export.Rows(st, sel)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			cw := csv.NewWriter(w)
			if err := cw.WriteAll(export.Table(rows)); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d rows (%s)\n", out, len(rows), sel.Title())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "total", "total, yearly, monthly or weekly")
	cmd.Flags().IntVar(&year, "year", 0, "year for yearly and monthly exports")
	cmd.Flags().IntSliceVar(&months, "months", nil, "months for a monthly export, e.g. 1,2,3")
	cmd.Flags().StringSliceVar(&weeks, "weeks", nil, "week-start Sundays for a weekly export")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}
