package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/components"
	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/styles"
)

const timeLayout = "2006-01-02 15:04:05"

var cliWriteLine = func(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

func cliRenderTitle(msg string) string {
	return styles.Theme.Title.Render(msg)
}

func cliRenderMuted(msg string) string {
	return styles.Theme.Muted.Render(msg)
}

func cliRenderEmptyState(msg string) string {
	return cliRenderMuted(msg)
}

func cliRenderListItem(msg string) string {
	return styles.RenderListItem(msg)
}

func cliRenderSuccess(msg string) string {
	return styles.RenderSuccess(msg)
}

func cliRenderWarning(msg string) string {
	return styles.RenderWarning(msg)
}

func cliRenderError(msg string) string {
	return styles.RenderError(msg)
}

func cliRenderInfo(msg string) string {
	return styles.RenderInfo(msg)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return datasize.ByteSize(uint64(bytes)).HumanReadable()
}

// runStep runs fn behind a spinner when stdout is a terminal.
// Steps that may ask for confirmation must not use it.
func (st *rootState) runStep(ctx context.Context, message string, fn func(ctx context.Context) error) error {
	if !st.interactive() {
		return fn(ctx)
	}
	return components.RunWithSpinner(ctx, message, fn)
}
