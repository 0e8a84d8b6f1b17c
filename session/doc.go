// Package session runs command/response exchanges with the instrument.
//
// Session.Execute performs one exchange in a fixed order:
//
//  1. reject with NotConnected if the connection is not Open (no transport call)
//  2. acquire exclusive use of the wire, waiting in arrival order
//  3. flush inbound and outbound buffers (failures are logged, not fatal)
//  4. encode and send the command
//  5. receive the frame header, then the rest of the frame
//  6. decode the reply and check it answers the command
//  7. release the wire and return the Outcome
//
// Every failure is returned as a typed *Failure inside the Outcome; Execute never
// panics and never returns without an Outcome.
package session
