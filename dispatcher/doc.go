// Package dispatcher runs exchanges off the caller's goroutine.
//
// Submit never blocks: commands wait in an unbounded FIFO queue that a small pool of
// workers drains into the session. Every submission resolves exactly once, to the
// session's Outcome or to an Aborted failure when the dispatcher shuts down first.
//
// Completion callbacks run on one delivery goroutine, one at a time and in
// completion order, so callback code may update shared state without extra locking.
// A panicking callback is logged and does not affect later deliveries.
package dispatcher
