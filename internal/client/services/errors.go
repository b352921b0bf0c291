// Package services holds the device client's use cases: signing in,
// recording local edits and synchronizing them with the server.
package services

import "errors"

var ErrNotLoggedIn = errors.New("not logged in, run 'nibble login' first")
