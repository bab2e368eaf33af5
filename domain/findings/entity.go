package findings

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Finding is a single masked detection persisted for a scanned object.
// The uniqueness constraint on (bucket, key, etag, detector, byte_offset)
// makes re-processing the same object version idempotent.
type Finding struct {
	bun.BaseModel `bun:"table:findings,alias:f"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	JobID       uuid.UUID `bun:"job_id,type:uuid,notnull" json:"job_id"`
	Bucket      string    `bun:"bucket,notnull" json:"bucket"`
	Key         string    `bun:"key,notnull" json:"key"`
	ETag        string    `bun:"etag,notnull" json:"-"`
	Detector    string    `bun:"detector,notnull" json:"detector"`
	MaskedMatch string    `bun:"masked_match,notnull" json:"masked_match"`
	Context     string    `bun:"context,notnull,default:''" json:"context"`
	ByteOffset  int64     `bun:"byte_offset,notnull" json:"byte_offset"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()" json:"created_at"`
}

// Filter narrows a findings query. Zero values mean "no filter".
type Filter struct {
	JobID     *uuid.UUID
	Bucket    string
	KeyPrefix string
}

// Pagination selects exactly one of the two supported pagination modes.
type Pagination interface {
	isPagination()
}

// Cursor pages by descending id; rows with id < LastID are returned.
// A zero LastID starts from the newest row.
type Cursor struct {
	LastID int64
}

// Offset pages by creation time descending with a row offset.
type Offset struct {
	N int
}

func (Cursor) isPagination() {}
func (Offset) isPagination() {}

// Page is one page of query results plus the total under the same filter.
type Page struct {
	Findings []*Finding
	Total    int
}
