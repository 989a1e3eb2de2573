// Package logging builds zap loggers, including the adapter that turns a
// resolved logging profile into logger settings.
package logging
