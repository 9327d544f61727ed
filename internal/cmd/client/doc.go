// Package client contains Cobra CLI commands for the traced HTTP API.
package client
