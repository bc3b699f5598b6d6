package workers

import (
	"context"
	"log"
	"time"

	"eco-quest-system/services"
)

// PollChallengeProgress periodically recomputes community challenge progress
// from approved submissions. Progress lives off the request path on purpose:
// approvals stay cheap, and the recompute is idempotent so a missed tick
// just means the next one catches up.
func PollChallengeProgress(ctx context.Context, svc *services.ChallengeService, interval time.Duration) {
	log.Printf("🔁 Challenge progress poller running (every %s)", interval)

	// First pass immediately so a restart doesn't leave stale progress.
	if err := svc.RecomputeProgress(ctx); err != nil {
		log.Printf("[CHALLENGE] ⚠️ Initial progress recompute failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := svc.RecomputeProgress(ctx); err != nil {
				log.Printf("[CHALLENGE] ❌ Progress recompute failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Challenge progress poller stopped")
			return
		}
	}
}
