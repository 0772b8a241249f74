package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/components"
	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

// confirmer picks how confirmations are answered for this invocation:
// --yes approves, a terminal gets a dialog, anything else declines.
func (st *rootState) confirmer() out.Confirmer {
	if st.opts.AssumeYes {
		return out.AlwaysConfirm
	}
	if !st.isTerminal(st.streams.In) {
		return out.ConfirmFunc(func(_ context.Context, req domain.ConfirmRequest) (bool, error) {
			_ = cliWriteLine(st.streams.Err, cliRenderWarning(req.Question))
			if req.Warning != "" {
				_ = cliWriteLine(st.streams.Err, cliRenderListItem(req.Warning))
			}
			_ = cliWriteLine(st.streams.Err, cliRenderMuted("No terminal to confirm on; rerun with --yes to proceed."))
			return false, nil
		})
	}
	return out.ConfirmFunc(st.promptConfirm)
}

func (st *rootState) promptConfirm(ctx context.Context, req domain.ConfirmRequest) (bool, error) {
	var opts []components.ConfirmOption
	if req.Warning != "" {
		opts = append(opts, components.WithWarning(req.Warning))
	}

	programOpts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(st.streams.In),
		tea.WithOutput(st.streams.Out),
	}

	return components.RunConfirm(req.Question, programOpts, opts...)
}
