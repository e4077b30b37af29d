package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/titledate-verifier/internal/entity"
)

// Run shows the progress screen until events is closed and returns the
// report from the final event. The batch keeps running off the UI
// goroutine; quitting early calls cancel and waits for the batch to wind
// down so the event channel is always drained.
func Run(title string, events <-chan entity.ProgressEvent, cancel context.CancelFunc, opts ...tea.ProgramOption) (*entity.BatchReport, error) {
	p := tea.NewProgram(NewModel(title, cancel), opts...)

	reportCh := make(chan *entity.BatchReport, 1)
	go func() {
		var report *entity.BatchReport
		for ev := range events {
			if ev.Kind == entity.ProgressBatchFinished {
				report = ev.Report
			}
			// Send returns immediately once the program has exited.
			p.Send(EventMsg(ev))
		}
		p.Send(closedMsg{})
		reportCh <- report
	}()

	_, err := p.Run()
	if err != nil && cancel != nil {
		cancel()
	}
	report := <-reportCh
	if err != nil {
		return report, fmt.Errorf("progress ui: %w", err)
	}
	return report, nil
}
