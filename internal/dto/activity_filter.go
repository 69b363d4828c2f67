// ActivityFilter narrows the activity journal listing.
package dto

import (
	"time"

	"camdash/internal/model"
)

type ActivityFilter struct {
	Kind  model.ActivityKind
	Since time.Time
	Limit int
}
