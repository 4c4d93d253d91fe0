package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pegfuzz/internal/ui"
)

// runWithUI runs work on its own goroutine and renders the events it
// sends. Quitting the UI cancels the context handed to work; work must not
// close events.
func runWithUI(ctx context.Context, title string, work func(ctx context.Context, events chan<- ui.Event) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan ui.Event, 256)
	outcome := make(chan error, 1)

	go func() {
		err := work(ctx, events)
		close(events)
		outcome <- err
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	cancel()
	// дренируем канал, чтобы генерация не заблокировалась
	go func() {
		for range events {
		}
	}()
	err := <-outcome
	if uiErr != nil {
		return uiErr
	}
	return err
}
