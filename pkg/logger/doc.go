// Package logger provides the structured logging interface used across diarykeeper.
//
// It wraps zerolog with a colored console writer and an optional log file:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "debug", File: "data/diarykeeper.log"})
//	log := logger.GetLogger().WithField("site", "Hinatazaka46")
//	log.InfoWithFields("crawl finished", map[string]interface{}{"new_posts": 12})
//
// Components accept a Logger and fall back to the global one through
// OrDefault. Tests inject NewTestLogger to assert on emitted messages, or
// NewNopLogger to silence output.
package logger
