package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/checkrunsync/internal/application"
	"github.com/ericfisherdev/checkrunsync/internal/config"
)

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "checkrun",
		Short:         "Keep a GitHub check run in sync across the steps of a pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)

	root.AddCommand(newGetCmd(), newUpdateCmd(), newShowCmd())
	return root
}

// withApp loads the configuration, wires the application and runs fn.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func newGetCmd() *cobra.Command {
	var req application.GetRequest

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Find the open check run for a commit or create one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				state, err := application.OpenState(a.store, a.cfg.Owner, a.cfg.Repo)
				if err != nil {
					return err
				}
				if err := a.service.Get(cmd.Context(), state, req); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "check-run-id=%d\n", *state.ID)
				return err
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Ref, "ref", "", "commit SHA the check run is attached to")
	f.StringVar(&req.CheckRunName, "name", "", "check run name")
	f.StringVar(&req.Title, "title", "", "output title")
	f.StringVar(&req.Summary, "summary", "", "output summary")
	f.StringVar(&req.Text, "text", "", "initial output text")
	f.StringVar(&req.DetailsURL, "details-url", "", "link shown on the check run")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var req application.UpdateRequest

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Append text to the check run and optionally conclude it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				state, err := application.OpenState(a.store, a.cfg.Owner, a.cfg.Repo)
				if err != nil {
					return err
				}
				return a.service.Update(cmd.Context(), state, req)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.AppendText, "append-text", "", "text appended as a new line")
	f.StringVar(&req.Conclusion, "conclusion", "", "completes the check run (success, failure, cancelled, ...)")
	f.StringVar(&req.Title, "title", "", "replaces the output title")
	f.StringVar(&req.Summary, "summary", "", "replaces the output summary")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the decrypted state as YAML with the token redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				state, err := a.store.Load()
				if err != nil {
					return err
				}
				view := newStateView(state)
				if a.journal != nil && state.Ref != "" {
					entries, err := a.journal.ListForRef(cmd.Context(), state.Owner, state.Repo, state.Ref)
					if err != nil {
						return err
					}
					view.addJournal(entries)
				}
				return writeYAML(cmd.OutOrStdout(), view)
			})
		},
	}
}
