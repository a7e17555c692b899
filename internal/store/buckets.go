package store

import (
	"sort"
	"time"

	"github.com/RichardoC/pad-chat/internal/models"
)

const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
	LabelLast7Days = "Last 7 days"
	LabelOlder     = "Older"
)

// Buckets groups conversations by how recently they were used. Each slice
// is ordered most recent first.
type Buckets struct {
	Today     []*models.Conversation
	Yesterday []*models.Conversation
	Last7Days []*models.Conversation
	Older     []*models.Conversation
}

type Group struct {
	Label         string
	Conversations []*models.Conversation
}

// Groups returns the non-empty buckets in display order.
func (b Buckets) Groups() []Group {
	var groups []Group
	for _, g := range []Group{
		{LabelToday, b.Today},
		{LabelYesterday, b.Yesterday},
		{LabelLast7Days, b.Last7Days},
		{LabelOlder, b.Older},
	} {
		if len(g.Conversations) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func (b Buckets) Len() int {
	return len(b.Today) + len(b.Yesterday) + len(b.Last7Days) + len(b.Older)
}

// Partition buckets convs against the calendar day of now in now's location.
func Partition(convs []*models.Conversation, now time.Time) Buckets {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	last7Start := todayStart.AddDate(0, 0, -7)

	var b Buckets
	for _, conv := range convs {
		used := conv.LastActivity().Time()
		switch {
		case !used.Before(todayStart):
			b.Today = append(b.Today, conv)
		case !used.Before(yesterdayStart):
			b.Yesterday = append(b.Yesterday, conv)
		case !used.Before(last7Start):
			b.Last7Days = append(b.Last7Days, conv)
		default:
			b.Older = append(b.Older, conv)
		}
	}

	for _, bucket := range [][]*models.Conversation{b.Today, b.Yesterday, b.Last7Days, b.Older} {
		sortRecentFirst(bucket)
	}
	return b
}

func sortRecentFirst(convs []*models.Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		a, b := convs[i], convs[j]
		if a.LastActivity() != b.LastActivity() {
			return a.LastActivity() > b.LastActivity()
		}
		if a.Created != b.Created {
			return a.Created > b.Created
		}
		return a.ID > b.ID
	})
}
