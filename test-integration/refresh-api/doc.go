// Package integration provides integration tests for the ToolHive refresh server.
// These tests run the complete server against a fake feature backend and check
// background passes, related fan-out, external triggers and debounced refreshes.
package integration
