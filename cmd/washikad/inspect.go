package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"washika-dao/config"
	"washika-dao/models"
)

// formatAmount renders base units as WASHA with six decimals
func formatAmount(amount uint64) string {
	return fmt.Sprintf("%d.%06d", amount/models.TokenUnit, amount%models.TokenUnit)
}

func renderProposals(out io.Writer, height uint64, views []models.ProposalView) {
	if len(views) == 0 {
		fmt.Fprintln(out, "No proposals found")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Proposals at block %d", height))
	t.AppendHeader(table.Row{"ID", "Proposer", "State", "Window", "For", "Against", "Abstain", "ETA", "Description"})
	for _, v := range views {
		eta := "-"
		if v.ETA != 0 {
			eta = strconv.FormatUint(v.ETA, 10)
		}
		t.AppendRow(table.Row{
			v.ID,
			v.Proposer,
			v.StateName,
			fmt.Sprintf("%d-%d", v.StartBlock, v.EndBlock),
			formatAmount(v.ForVotes),
			formatAmount(v.AgainstVotes),
			formatAmount(v.AbstainVotes),
			eta,
			text.Trim(v.Description, 40),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

func renderAccount(out io.Writer, acct models.Account, checkpoints []models.Checkpoint) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(string(acct.Principal))
	delegate := string(acct.Delegate)
	if acct.Delegate == models.NoDelegate {
		delegate = "(none)"
	}
	t.AppendRows([]table.Row{
		{"Balance", formatAmount(acct.Balance)},
		{"Delegate", delegate},
		{"Current votes", formatAmount(acct.CurrentVotes)},
	})
	t.Render()

	if len(checkpoints) == 0 {
		return
	}
	cp := table.NewWriter()
	cp.SetOutputMirror(out)
	cp.SetStyle(table.StyleLight)
	cp.SetTitle("Voting power history")
	cp.AppendHeader(table.Row{"From block", "Votes"})
	for _, c := range checkpoints {
		cp.AppendRow(table.Row{c.FromBlock, formatAmount(c.Votes)})
	}
	cp.Render()
}

func renderReport(out io.Writer, report models.LedgerReport) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Ledger at block %d", report.Height))
	t.AppendRows([]table.Row{
		{"Total supply", formatAmount(report.TotalSupply)},
		{"Sum of balances", formatAmount(report.SumBalances)},
		{"Sum of votes", formatAmount(report.SumVotes)},
		{"Holders", report.Holders},
		{"Delegatees", report.Delegatees},
		{"Consistent", report.Consistent},
	})
	t.Render()
}

func inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print ledger state from the local store",
		Long:  "Print ledger state from the local store. The store is opened read-only and must already exist; the server must not be running, leveldb allows a single process.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "proposals",
		Short: "List proposals with their current state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			svc, err := openInspectServices(cfg)
			if err != nil {
				return err
			}
			defer svc.db.Close()

			height, err := svc.clock.Height()
			if err != nil {
				return err
			}
			views, err := svc.engine.Proposals()
			if err != nil {
				return err
			}
			renderProposals(cmd.OutOrStdout(), height, views)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "account <principal>",
		Short: "Show balance, delegate and voting power history of a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			p := models.Principal(args[0])
			if !p.Valid() {
				return models.ErrInvalidPrincipal
			}
			svc, err := openInspectServices(cfg)
			if err != nil {
				return err
			}
			defer svc.db.Close()

			acct, err := svc.tokens.Account(p)
			if err != nil {
				return err
			}
			checkpoints, err := svc.tokens.Checkpoints(p)
			if err != nil {
				return err
			}
			renderAccount(cmd.OutOrStdout(), acct, checkpoints)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check supply and delegation conservation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			svc, err := openInspectServices(cfg)
			if err != nil {
				return err
			}
			defer svc.db.Close()

			report, err := svc.tokens.Validate()
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), report)
			if !report.Consistent {
				return errors.New("ledger invariants violated")
			}
			return nil
		},
	})
	return cmd
}
