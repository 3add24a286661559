package web

import (
	"time"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

//go:generate templ generate -f report.templ

func reportTitle(sum *core.ImportSummary) string {
	if sum.SourceName == "" {
		return "Import report"
	}
	return "Import report: " + sum.SourceName
}

func reportStatus(sum *core.ImportSummary) string {
	if sum.Cancelled {
		return "Cancelled"
	}
	return "Completed"
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}
