package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose = "verbose"
	FlagConfig  = "config"
	FlagLogFile = "log-file"

	// Run flags (eval and step)
	FlagInputs            = "inputs"
	FlagMinimizationLimit = "minimization-limit"

	// Step command flags
	FlagTUI               = "tui"
	FlagSpeed             = "speed"
	FlagBreak             = "break"
	FlagIgnoreBreakpoints = "ignore-breakpoints"
	FlagTrace             = "trace"
	FlagListen            = "listen"

	// Control flags (status, pause, resume, next, halt, break, speed)
	FlagSocket = "socket"
	FlagOff    = "off"

	// Convert command flags
	FlagOutput = "output"

	// Init command flags
	FlagDryRun       = "dry-run"
	FlagForce        = "force"
	FlagSkipExamples = "skip-examples"

	// Output format flags
	FlagJSON = "json"
)
