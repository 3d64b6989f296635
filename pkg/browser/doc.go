// Package browser drives a live page through Playwright and exposes it as a
// dom.Document, so the overlay and fill engine run unchanged against a real
// browser.
//
// # Architecture
//
//  1. SessionManager owns the Playwright driver and the browser sessions.
//  2. Session is one browser, context and page.
//  3. Document and Element implement the dom contract over element handles.
//
// # Observers
//
// Mutation, intersection, viewport and click watchers are installed as page
// JavaScript (see script.go). The page reports back through one exposed
// function, __formlessNotify. Playwright invokes that function on its own
// goroutine; the Document queues each call and a single dispatch goroutine
// runs the subscriber callbacks in arrival order, so callbacks never run
// concurrently and may call back into the page.
//
// Observers live in the page's JavaScript realm. Session.Navigate drops
// them; callers disable and re-enable the overlay after navigating.
package browser
