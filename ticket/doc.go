// Package ticket manages authcookies: short-lived random tickets that prove a
// prior successful login so a remote system can authenticate a user without
// seeing the password again.
//
// A [Manager] keeps live tickets in a map keyed by ticket bytes, with a
// secondary index from owner to that owner's tickets. Each ticket carries its
// own expiry timer from [github.com/benbjohnson/clock]; destroying a ticket
// stops the timer, and a timer that fires after the ticket is gone does
// nothing.
//
// Tickets are never persisted. Closing the manager, or restarting the
// process, invalidates all of them.
package ticket
