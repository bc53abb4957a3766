package services

import (
	"time"

	"github.com/fitlink/fitlink-backend/internal/types"
)

// Display buckets. Recomputed on every read; never persisted.
const (
	BucketOverdue            = "overdue"
	BucketToday              = "today"
	BucketPendingSend        = "pending_send"
	BucketSent               = "sent"
	BucketPostponedOrSkipped = "postponed_or_skipped"
)

func ValidBucket(bucket string) bool {
	switch bucket {
	case BucketOverdue, BucketToday, BucketPendingSend, BucketSent, BucketPostponedOrSkipped:
		return true
	}
	return false
}

type TaskBuckets struct {
	Overdue            []*types.RelationshipTask `json:"overdue"`
	Today              []*types.RelationshipTask `json:"today"`
	PendingSend        []*types.RelationshipTask `json:"pending_send"`
	Sent               []*types.RelationshipTask `json:"sent"`
	PostponedOrSkipped []*types.RelationshipTask `json:"postponed_or_skipped"`
}

// ClassifyTask places one task in exactly one bucket. Status rules win over
// date rules; date comparison uses the calendar day in loc, the organization's
// configured timezone.
func ClassifyTask(task *types.RelationshipTask, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	switch task.Status {
	case types.TaskStatusSent:
		return BucketSent
	case types.TaskStatusSkipped, types.TaskStatusDeleted:
		return BucketPostponedOrSkipped
	}

	taskDay := dateOf(task.ScheduledFor, loc)
	today := dateOf(now, loc)
	switch {
	case taskDay.Before(today):
		return BucketOverdue
	case taskDay.Equal(today):
		return BucketToday
	default:
		return BucketPendingSend
	}
}

// ClassifyTasks partitions tasks into the five buckets. Every task lands in
// exactly one bucket; the union of the buckets is the input set.
func ClassifyTasks(tasks []*types.RelationshipTask, now time.Time, loc *time.Location) TaskBuckets {
	buckets := TaskBuckets{
		Overdue:            []*types.RelationshipTask{},
		Today:              []*types.RelationshipTask{},
		PendingSend:        []*types.RelationshipTask{},
		Sent:               []*types.RelationshipTask{},
		PostponedOrSkipped: []*types.RelationshipTask{},
	}
	for _, task := range tasks {
		switch ClassifyTask(task, now, loc) {
		case BucketSent:
			buckets.Sent = append(buckets.Sent, task)
		case BucketPostponedOrSkipped:
			buckets.PostponedOrSkipped = append(buckets.PostponedOrSkipped, task)
		case BucketOverdue:
			buckets.Overdue = append(buckets.Overdue, task)
		case BucketToday:
			buckets.Today = append(buckets.Today, task)
		case BucketPendingSend:
			buckets.PendingSend = append(buckets.PendingSend, task)
		}
	}
	return buckets
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
