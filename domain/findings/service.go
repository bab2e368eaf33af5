package findings

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/oversec/bucketscan/pkg/apperror"
	"github.com/oversec/bucketscan/pkg/logger"
)

const defaultLimit = 100

type resultsQuerier interface {
	Query(ctx context.Context, filter Filter, page Pagination, limit int) (*Page, error)
}

// Service implements the findings query surface.
type Service struct {
	repo resultsQuerier
	log  *slog.Logger
}

// NewService creates a new findings service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("findings.service")),
	}
}

// ListResults resolves the query parameters into a filter and a pagination
// mode, runs the query, and shapes the paginated response. Cursor mode wins
// when both cursor and offset are supplied.
func (s *Service) ListResults(ctx context.Context, q *ResultsQuery) (*ResultsResponse, error) {
	filter := Filter{
		Bucket:    q.Bucket,
		KeyPrefix: q.Key,
	}
	if q.JobID != "" {
		jobID, err := uuid.Parse(q.JobID)
		if err != nil {
			return nil, apperror.ErrBadRequest.WithMessage("invalid job_id")
		}
		filter.JobID = &jobID
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var page Pagination
	cursorMode := q.Cursor != ""
	if cursorMode {
		lastID, err := strconv.ParseInt(q.Cursor, 10, 64)
		if err != nil || lastID < 0 {
			return nil, apperror.ErrBadRequest.WithMessage("invalid cursor")
		}
		page = Cursor{LastID: lastID}
	} else {
		offset := 0
		if q.Offset != nil {
			if *q.Offset < 0 {
				return nil, apperror.ErrBadRequest.WithMessage("invalid offset")
			}
			offset = *q.Offset
		}
		page = Offset{N: offset}
	}

	result, err := s.repo.Query(ctx, filter, page, limit)
	if err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}

	resp := &ResultsResponse{
		Findings: result.Findings,
		Total:    result.Total,
		Limit:    limit,
	}

	if cursorMode {
		resp.Cursor = q.Cursor
		resp.HasMore = len(result.Findings) == limit
		if n := len(result.Findings); n > 0 {
			resp.NextCursor = strconv.FormatInt(result.Findings[n-1].ID, 10)
		}
	} else {
		offset := page.(Offset).N
		resp.Offset = &offset
		resp.HasMore = offset+limit < result.Total
	}

	return resp, nil
}
