// Package slog provides logging decorators for artpub services.
// Each decorator logs one record per call with the call's inputs, result
// size, duration and error.
package slog

import "log/slog"

// levelFor returns the level for a call that ended with err: failures
// are warnings, everything else is info.
func levelFor(err error) slog.Level {
	if err != nil {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
