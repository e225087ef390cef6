package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/mentora/internal/audit"
	"github.com/p-n-ai/mentora/internal/content"
	"github.com/p-n-ai/mentora/internal/metrics"
)

const defaultThreshold = 0.85

// Report is the outcome of a detection run.
type Report struct {
	Threshold       float64   `json:"threshold"`
	TotalGroups     int       `json:"total_groups"`
	TotalDuplicates int       `json:"total_duplicates"`
	Groups          []Group   `json:"duplicates"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// DetectRequest selects the candidates and threshold for a run. A nil
// Threshold uses the service default.
type DetectRequest struct {
	Filter    content.Filter
	Threshold *float64
}

// DeleteRequest names one duplicate group to collapse.
type DeleteRequest struct {
	GroupID     string
	QuestionIDs []string
	Actor       string
}

// DeleteResult reports what DeleteGroup did.
type DeleteResult struct {
	DeletedCount   int      `json:"deleted_count"`
	PreservedCount int      `json:"preserved_count"`
	PreservedID    string   `json:"preserved_id,omitempty"`
	DeletedIDs     []string `json:"deleted_ids,omitempty"`
}

// ServiceConfig holds dependencies for the duplicate service.
type ServiceConfig struct {
	Store              content.Store
	Reports            *ReportCache      // optional
	Events             audit.EventLogger // optional
	DefaultThreshold   float64           // default 0.85
	VerifyBeforeDelete bool
}

// Service runs duplicate detection and deletion against a content store.
type Service struct {
	store              content.Store
	reports            *ReportCache
	events             audit.EventLogger
	defaultThreshold   float64
	verifyBeforeDelete bool
}

// NewService creates a duplicate service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = content.NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = audit.NopEventLogger{}
	}
	threshold := cfg.DefaultThreshold
	if threshold == 0 {
		threshold = defaultThreshold
	}
	return &Service{
		store:              store,
		reports:            cfg.Reports,
		events:             events,
		defaultThreshold:   threshold,
		verifyBeforeDelete: cfg.VerifyBeforeDelete,
	}
}

// DefaultThreshold returns the threshold used when a request names none.
func (s *Service) DefaultThreshold() float64 {
	return s.defaultThreshold
}

// Detect finds duplicate groups among the active questions matching the
// request filter.
func (s *Service) Detect(ctx context.Context, req DetectRequest, progress ProgressFunc) (Report, error) {
	threshold := s.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if err := ValidateThreshold(threshold); err != nil {
		return Report{}, err
	}
	if err := ValidateFilter(req.Filter); err != nil {
		return Report{}, err
	}

	var cacheKey string
	if s.reports != nil {
		key, err := s.reports.Key(ctx, req.Filter, threshold)
		if err != nil {
			slog.Warn("report cache read failed", "error", err)
		} else {
			cacheKey = key
		}
	}
	if cacheKey != "" {
		cached, ok, err := s.reports.Get(ctx, cacheKey)
		switch {
		case err != nil:
			slog.Warn("report cache read failed", "error", err)
		case ok:
			metrics.RecordCachedDetection()
			if progress != nil {
				progress(Progress{Stage: StageComplete, Percent: 100})
			}
			slog.Debug("detection served from cache", "groups", cached.TotalGroups)
			return cached, nil
		default:
			metrics.ReportCacheMisses.Inc()
		}
	}

	start := time.Now()
	candidates, err := s.store.ListCandidates(ctx, req.Filter)
	if err != nil {
		metrics.RecordDetection(0, 0, time.Since(start), err)
		return Report{}, fmt.Errorf("list candidates: %w", err)
	}

	groups, err := Detect(ctx, candidates, threshold, progress)
	if err != nil {
		metrics.RecordDetection(len(candidates), 0, time.Since(start), err)
		return Report{}, fmt.Errorf("detect duplicates: %w", err)
	}

	report := Report{
		Threshold:       threshold,
		TotalGroups:     len(groups),
		TotalDuplicates: TotalDuplicates(groups),
		Groups:          groups,
		GeneratedAt:     time.Now().UTC(),
	}
	elapsed := time.Since(start)
	metrics.RecordDetection(len(candidates), len(groups), elapsed, nil)

	slog.Info("duplicate detection completed",
		"candidates", len(candidates),
		"groups", report.TotalGroups,
		"duplicates", report.TotalDuplicates,
		"threshold", threshold,
		"duration_ms", elapsed.Milliseconds(),
	)

	if cacheKey != "" {
		if err := s.reports.Put(ctx, cacheKey, report); err != nil {
			slog.Warn("report cache write failed", "error", err)
		}
	}
	return report, nil
}

// PreviewDelete reports what DeleteGroup would do with req without
// deleting anything. DeletedCount and DeletedIDs name the questions that
// would be removed.
func (s *Service) PreviewDelete(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	existing, err := s.store.GetQuestions(ctx, req.QuestionIDs)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("preview group %s: %w", req.GroupID, err)
	}
	if len(existing) == 0 {
		return DeleteResult{}, nil
	}

	keep, remove, err := KeepOldest(s.verifyThreshold())(existing)
	if err != nil {
		return DeleteResult{}, err
	}
	slog.Debug("duplicate group previewed",
		"group_id", req.GroupID,
		"would_delete", len(remove),
		"preserved_id", keep.ID,
	)
	return DeleteResult{
		DeletedCount:   len(remove),
		PreservedCount: 1,
		PreservedID:    keep.ID,
		DeletedIDs:     remove,
	}, nil
}

// DeleteGroup keeps the oldest existing question among req.QuestionIDs and
// deletes the rest in a single transaction. Unknown ids are ignored.
func (s *Service) DeleteGroup(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	res, err := s.store.DeleteGroup(ctx, req.QuestionIDs, KeepOldest(s.verifyThreshold()))
	if err != nil {
		if errors.Is(err, ErrVerificationFailed) {
			metrics.DeletionRefused.Inc()
			slog.Warn("duplicate deletion refused", "group_id", req.GroupID, "error", err)
			return DeleteResult{}, err
		}
		return DeleteResult{}, fmt.Errorf("delete group %s: %w", req.GroupID, err)
	}

	out := DeleteResult{
		DeletedCount: len(res.DeletedIDs),
		DeletedIDs:   res.DeletedIDs,
	}
	if res.Preserved != nil {
		out.PreservedCount = 1
		out.PreservedID = res.Preserved.ID
	}

	if out.DeletedCount > 0 {
		metrics.QuestionsDeleted.Add(float64(out.DeletedCount))
		if s.reports != nil {
			if err := s.reports.Invalidate(ctx); err != nil {
				slog.Warn("report cache invalidation failed", "error", err)
			}
		}
		if err := s.events.LogEvent(ctx, audit.Event{
			Actor: req.Actor,
			Type:  audit.EventDuplicatesDeleted,
			Data: map[string]any{
				"group_id":     req.GroupID,
				"preserved_id": out.PreservedID,
				"deleted_ids":  out.DeletedIDs,
			},
		}); err != nil {
			slog.Error("failed to record audit event", "error", err)
		}
	}

	slog.Info("duplicate group deleted",
		"group_id", req.GroupID,
		"actor", req.Actor,
		"deleted", out.DeletedCount,
		"preserved_id", out.PreservedID,
	)
	return out, nil
}

// verifyThreshold is the similarity every victim must reach against the
// survivor, or 0 when deletions are not verified.
func (s *Service) verifyThreshold() float64 {
	if s.verifyBeforeDelete {
		return s.defaultThreshold
	}
	return 0
}
