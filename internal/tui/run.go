package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/ai"
)

// Task runs a model call, reporting stream events through progress.
type Task func(ctx context.Context, progress func(ai.Event) error) error

// RunProgress runs task while showing a Progress view on out. Aborting
// from the keyboard cancels the context passed to task.
func RunProgress(ctx context.Context, in io.Reader, out io.Writer, status string, task Task) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgc := make(chan tea.Msg)
	go func() {
		err := task(ctx, func(e ai.Event) error {
			select {
			case msgc <- EventMsg{Event: e}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		select {
		case msgc <- DoneMsg{Err: err}:
		case <-ctx.Done():
		}
	}()

	next := func() tea.Msg {
		select {
		case msg := <-msgc:
			return msg
		case <-ctx.Done():
			return nil
		}
	}

	p := tea.NewProgram(NewProgress(status, next), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	result, err := p.Run()
	if err != nil {
		return errors.WithStack(err)
	}
	return result.(Progress).Err()
}
