// services/scheduler.go
package services

import (
	"log"
	"time"

	"eco-quest-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartQuestScheduler publishes scheduled quests when their time arrives and
// deactivates quests whose deadline has passed.
func (s *QuestService) StartQuestScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: publish scheduled quests
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var quests []models.Quest
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at <= ?", models.QuestStatusScheduled, now).
				Find(&quests).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, q := range quests {
				q.Status = models.QuestStatusPublished
				q.PublishAt = nil
				if err := s.DB.Save(&q).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish quest %s: %v", q.ID, err)
				} else {
					log.Printf("✅ Auto-published quest: %s", q.Title)
				}
			}
		}),
	)

	// Every minute: deactivate quests past their deadline
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()
			res := s.DB.Model(&models.Quest{}).
				Where("is_active = ? AND deadline IS NOT NULL AND deadline <= ?", true, now).
				UpdateColumn("is_active", false)
			if res.Error != nil {
				log.Printf("[Scheduler] DB error: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("⏳ Deactivated %d quest(s) past deadline", res.RowsAffected)
			}
		}),
	)
}
