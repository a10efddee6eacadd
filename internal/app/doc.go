// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the action lifecycle (list, test and the
// build family), decoupled from any specific entrypoint like a CLI.
package app
