// Package client talks to the nibblelog sync server over HTTP and opens the
// device's local SQLite database.
package client
