package notifications

import "time"

// Bucket is a recency class used to group entries for display.
type Bucket string

const (
	BucketToday    Bucket = "today"
	BucketThisWeek Bucket = "thisWeek"
	BucketEarlier  Bucket = "earlier"
)

const (
	todayWindow    = 24 * time.Hour
	thisWeekWindow = 168 * time.Hour
)

// Buckets partitions notifications by recency. Each slice keeps the input order.
type Buckets struct {
	Today    []Notification `json:"today"`
	ThisWeek []Notification `json:"thisWeek"`
	Earlier  []Notification `json:"earlier"`
}

// ClassifyRecency places at relative to now: under 24h is today, under 168h is this week, the rest is earlier.
// Timestamps in the future count as today.
func ClassifyRecency(at, now time.Time) Bucket {
	elapsed := now.Sub(at)
	switch {
	case elapsed < todayWindow:
		return BucketToday
	case elapsed < thisWeekWindow:
		return BucketThisWeek
	default:
		return BucketEarlier
	}
}

// BucketByRecency groups notifications with ClassifyRecency. Unparseable timestamps land in Earlier.
func BucketByRecency(notifications []Notification, now time.Time) Buckets {
	buckets := Buckets{
		Today:    []Notification{},
		ThisWeek: []Notification{},
		Earlier:  []Notification{},
	}
	for _, notification := range notifications {
		at, ok := notification.Time()
		if !ok {
			buckets.Earlier = append(buckets.Earlier, notification)
			continue
		}
		switch ClassifyRecency(at, now) {
		case BucketToday:
			buckets.Today = append(buckets.Today, notification)
		case BucketThisWeek:
			buckets.ThisWeek = append(buckets.ThisWeek, notification)
		default:
			buckets.Earlier = append(buckets.Earlier, notification)
		}
	}
	return buckets
}
