package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.LastUsedAt = time.Now()
}

// Navigate navigates the session's page to the specified URL. Observers
// registered on the session's Document are dropped; the Document itself
// stays usable.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if s.doc != nil {
		s.doc.navigated()
	}
	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// Document returns the dom.Document for the session's page, installing the
// observer bridge on first use.
func (s *Session) Document() (*Document, error) {
	s.UpdateLastUsed()
	if s.doc != nil {
		return s.doc, nil
	}
	doc, err := newDocument(s.Page)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return doc, nil
}

func (s *Session) close() error {
	if s.doc != nil {
		s.doc.Close()
		s.doc = nil
	}
	return errors.Join(
		s.Page.Close(),
		s.Context.Close(),
		s.Browser.Close(),
	)
}
