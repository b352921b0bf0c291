// Package cli implements the nibble device command line.
//
// Every command opens the local replica named in the TOML config, so edits
// work offline; only login and sync talk to the server. Typical flow:
//
//	nibble login -u yak
//	nibble category add Food --color '#f80'
//	nibble activity add --category <id> --amount 12.5
//	nibble sync
package cli
