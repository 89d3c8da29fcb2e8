// Package security holds the secret-handling and abuse-limiting pieces
// shared by the Slack transport and the logging stack.
package security
