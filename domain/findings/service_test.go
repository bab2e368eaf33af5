package findings

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oversec/bucketscan/pkg/apperror"
)

type fakeQuerier struct {
	page       *Page
	err        error
	gotFilter  Filter
	gotPage    Pagination
	gotLimit   int
	queryCount int
}

func (f *fakeQuerier) Query(_ context.Context, filter Filter, page Pagination, limit int) (*Page, error) {
	f.gotFilter = filter
	f.gotPage = page
	f.gotLimit = limit
	f.queryCount++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func newTestService(q *fakeQuerier) *Service {
	return &Service{
		repo: q,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func makeFindings(ids ...int64) []*Finding {
	out := make([]*Finding, 0, len(ids))
	for _, id := range ids {
		out = append(out, &Finding{ID: id, Detector: "email"})
	}
	return out
}

func TestListResultsOffsetMode(t *testing.T) {
	q := &fakeQuerier{page: &Page{Findings: makeFindings(30, 29, 28), Total: 10}}
	svc := newTestService(q)

	offset := 3
	resp, err := svc.ListResults(context.Background(), &ResultsQuery{Limit: 3, Offset: &offset})
	require.NoError(t, err)

	assert.Equal(t, Offset{N: 3}, q.gotPage)
	assert.Equal(t, 10, resp.Total)
	assert.True(t, resp.HasMore, "offset 3 + limit 3 < total 10")
	require.NotNil(t, resp.Offset)
	assert.Equal(t, 3, *resp.Offset)
	assert.Empty(t, resp.NextCursor)
}

func TestListResultsOffsetLastPage(t *testing.T) {
	q := &fakeQuerier{page: &Page{Findings: makeFindings(2, 1), Total: 10}}
	svc := newTestService(q)

	offset := 8
	resp, err := svc.ListResults(context.Background(), &ResultsQuery{Limit: 3, Offset: &offset})
	require.NoError(t, err)

	assert.False(t, resp.HasMore, "offset 8 + limit 3 >= total 10")
}

func TestListResultsCursorMode(t *testing.T) {
	q := &fakeQuerier{page: &Page{Findings: makeFindings(97, 96, 95), Total: 95}}
	svc := newTestService(q)

	resp, err := svc.ListResults(context.Background(), &ResultsQuery{Limit: 3, Cursor: "98"})
	require.NoError(t, err)

	assert.Equal(t, Cursor{LastID: 98}, q.gotPage)
	assert.Equal(t, "98", resp.Cursor)
	assert.Equal(t, "95", resp.NextCursor, "next cursor is the last row id")
	assert.True(t, resp.HasMore, "full page means more may follow")
}

func TestListResultsCursorShortPage(t *testing.T) {
	q := &fakeQuerier{page: &Page{Findings: makeFindings(2, 1), Total: 2}}
	svc := newTestService(q)

	resp, err := svc.ListResults(context.Background(), &ResultsQuery{Limit: 100, Cursor: "3"})
	require.NoError(t, err)

	assert.False(t, resp.HasMore, "short page ends the iteration")
	assert.Equal(t, "1", resp.NextCursor)
}

func TestListResultsCursorWinsOverOffset(t *testing.T) {
	q := &fakeQuerier{page: &Page{Findings: nil, Total: 0}}
	svc := newTestService(q)

	offset := 5
	resp, err := svc.ListResults(context.Background(), &ResultsQuery{Cursor: "10", Offset: &offset})
	require.NoError(t, err)

	assert.Equal(t, Cursor{LastID: 10}, q.gotPage)
	assert.Nil(t, resp.Offset)
}

func TestListResultsDefaultLimit(t *testing.T) {
	q := &fakeQuerier{page: &Page{Findings: nil, Total: 0}}
	svc := newTestService(q)

	resp, err := svc.ListResults(context.Background(), &ResultsQuery{})
	require.NoError(t, err)

	assert.Equal(t, defaultLimit, q.gotLimit)
	assert.Equal(t, defaultLimit, resp.Limit)
}

func TestListResultsFilterPassthrough(t *testing.T) {
	q := &fakeQuerier{page: &Page{Findings: nil, Total: 0}}
	svc := newTestService(q)

	jobID := uuid.New()
	_, err := svc.ListResults(context.Background(), &ResultsQuery{
		JobID:  jobID.String(),
		Bucket: "scan-bucket",
		Key:    "logs/",
	})
	require.NoError(t, err)

	require.NotNil(t, q.gotFilter.JobID)
	assert.Equal(t, jobID, *q.gotFilter.JobID)
	assert.Equal(t, "scan-bucket", q.gotFilter.Bucket)
	assert.Equal(t, "logs/", q.gotFilter.KeyPrefix)
}

func TestListResultsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query ResultsQuery
	}{
		{"malformed job id", ResultsQuery{JobID: "not-a-uuid"}},
		{"non-numeric cursor", ResultsQuery{Cursor: "abc"}},
		{"negative cursor", ResultsQuery{Cursor: "-1"}},
		{"negative offset", ResultsQuery{Offset: intPtr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{}
			svc := newTestService(q)

			_, err := svc.ListResults(context.Background(), &tt.query)
			require.Error(t, err)

			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
			assert.Zero(t, q.queryCount, "invalid input never reaches the repository")
		})
	}
}

func intPtr(n int) *int { return &n }
