package fetcher

import (
	"time"

	"github.com/voyagen/goodytv/internal/models"
)

// Result is a freshly loaded playlist plus its (possibly empty) guide.
type Result struct {
	Channels  []models.Channel
	Schedule  models.Schedule
	FetchedAt time.Time
}
