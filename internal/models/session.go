package models

import "time"

// Session represents one support conversation. Besides identification it
// carries the troubleshooting guide position, so a guided sequence survives
// across request/response turns.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time

	// TroubleshootingActive reports whether a guided sequence is in
	// progress; TroubleshootingStep is only meaningful while it is.
	TroubleshootingActive bool
	TroubleshootingStep   int
}
