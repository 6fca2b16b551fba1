package cmd

import (
	"context"
	"fmt"

	"github.com/sphereryder/passvault/internal/audit"
)

// ActivityLog prints recent audit entries, most recent first
func ActivityLog(ctx context.Context, limit int) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	entries, err := engine.ActivityLog(ctx, limit)
	if err != nil {
		HandleError(err)
	}

	if len(entries) == 0 {
		fmt.Println("No activity recorded")
		return
	}

	for _, e := range entries {
		line := fmt.Sprintf("[%s] %s: %s", e.Time.Format("2006-01-02 15:04:05"), e.Actor, e.Op)
		if e.Target != "" {
			line += " " + e.Target
		}
		if e.Outcome != audit.OutcomeSuccess {
			line += fmt.Sprintf(" (%s: %s)", e.Outcome, e.Detail)
		}
		fmt.Println(line)
	}
}
