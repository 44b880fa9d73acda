// Package logger provides structured logging for catalogsync.
//
// It wraps zerolog behind a small Logger interface so components can receive
// a logger through their constructors and tests can swap in NewTestLogger or
// NewNopLogger.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("page fetched", map[string]interface{}{
//	    "offset": 100,
//	    "count":  50,
//	})
package logger
