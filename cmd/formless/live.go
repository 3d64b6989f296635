package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/entrhq/formless/pkg/browser"
	"github.com/entrhq/formless/pkg/config"
	"github.com/entrhq/formless/pkg/field"
	"github.com/entrhq/formless/pkg/fill"
	"github.com/entrhq/formless/pkg/logging"
	"github.com/entrhq/formless/pkg/overlay"
	"github.com/entrhq/formless/pkg/selection"
	"github.com/entrhq/formless/pkg/ui"
)

// runLive opens cfg.URL in Chromium. In batch mode the picker fills the whole
// page once; otherwise affordances are attached and each click opens a
// picker for that field until the process is interrupted.
func runLive(ctx context.Context, cfg *CLIConfig, svc service, logger *logging.Logger) error {
	sessions := browser.NewSessionManager()
	if err := sessions.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := sessions.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: browser shutdown: %v\n", err)
		}
	}()

	sess, err := sessions.StartSession("formless", browser.SessionOptions{Headless: cfg.Batch && cfg.Headless})
	if err != nil {
		return err
	}
	if err := sess.Navigate(cfg.URL, browser.NavigateOptions{WaitUntil: "load"}); err != nil {
		return err
	}
	doc, err := sess.Document()
	if err != nil {
		return err
	}

	notifier := &cliNotifier{out: os.Stderr, log: logger}
	adapters := field.DefaultAdapters()
	exec := fill.NewExecutor(adapters...)
	if logger != nil {
		exec = exec.WithLogger(logger)
	}

	if cfg.Batch {
		resolver, err := field.NewResolver(doc, adapters...)
		if err != nil {
			return err
		}
		ctrl := selection.NewController(selection.ResolverSource{Resolver: resolver}, svc.matcher, exec, notifier)
		return pick(ctx, ctrl, ctrl.OpenPage(), svc)
	}

	ov := overlay.NewManager(doc, config.GetOverlay().Options(), notifier, adapters...)
	ctrl := selection.NewController(ov, svc.matcher, exec, notifier)

	activations := make(chan field.Field, 1)
	ov.OnActivate(func(f field.Field) {
		select {
		case activations <- f:
		default:
		}
	})
	if err := ov.Enable(); err != nil {
		return err
	}
	defer func() {
		if err := ov.Disable(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: overlay teardown: %v\n", err)
		}
	}()

	fmt.Printf("Watching %s (%d fields). Click a fill button on the page, Ctrl+C to quit.\n", cfg.URL, ov.Len())

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-activations:
			s, err := ctrl.OpenField(f.ID)
			if err != nil {
				notifier.Error(err)
				continue
			}
			if err := pick(ctx, ctrl, s, svc); err != nil && !errors.Is(err, ui.ErrCancelled) {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				// Matching failures were already reported by the notifier.
				var pe *pickerError
				if errors.As(err, &pe) {
					return err
				}
			}
		}
	}
}

// pickerError marks failures of the terminal itself, which end the run.
type pickerError struct{ err error }

func (e *pickerError) Error() string { return e.err.Error() }
func (e *pickerError) Unwrap() error { return e.err }

// pick shows the picker for s and prints the outcome.
func pick(ctx context.Context, ctrl *selection.Controller, s *selection.Session, svc service) error {
	outcome, err := ui.Run(ctx, ctrl, s, listMemories(ctx, svc))
	switch {
	case errors.Is(err, ui.ErrCancelled), errors.Is(err, context.Canceled):
		return err
	case err != nil && ctrl.Active() == s:
		// The picker failed before the session settled.
		ctrl.Close(s)
		return &pickerError{err: err}
	case err != nil:
		return err
	}
	fmt.Println(ui.Summary(outcome))
	if details := ui.Details(outcome); details != "" && s.Mode() == selection.ModeBatch {
		fmt.Print(details)
	}
	return nil
}

// cliNotifier prints user-facing notices to the terminal and mirrors them
// into the run log.
type cliNotifier struct {
	out io.Writer
	log *logging.Logger
}

func (n *cliNotifier) Notice(msg string) {
	fmt.Fprintln(n.out, msg)
	if n.log != nil {
		n.log.Infof("notice: %s", msg)
	}
}

func (n *cliNotifier) Error(err error) {
	fmt.Fprintf(n.out, "Error: %v\n", err)
	if n.log != nil {
		n.log.Errorf("%v", err)
	}
}
