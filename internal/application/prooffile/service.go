package prooffile

import (
	"context"
	"log/slog"

	"github.com/claimdesk/claims-api/internal/domain"
)

// ObjectStore is the slice of the S3 store this service needs.
type ObjectStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Service uploads proof files for a claim, one at a time, and reports a
// per-file outcome. A single failed file never aborts the batch and the
// service never returns an aggregate error; the caller continues with
// whatever succeeded.
type Service struct {
	store ObjectStore
}

func NewService(store ObjectStore) *Service {
	return &Service{store: store}
}

// UploadMany stores each file under a collision-resistant key.
func (s *Service) UploadMany(ctx context.Context, claimID string, files []domain.ProofFile) []domain.UploadResult {
	results := make([]domain.UploadResult, 0, len(files))
	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		contentType := f.ContentType
		if contentType == "" {
			contentType = detectContentType(f.Filename)
		}
		key := BuildKey(claimID, f.Kind, f.Filename)
		url, err := s.store.UploadBytes(ctx, key, f.Data, contentType)
		if err != nil {
			slog.Warn("proof file upload failed", "claim_id", claimID, "kind", f.Kind, "err", err)
			results = append(results, domain.UploadResult{Kind: f.Kind, Err: err})
			continue
		}
		results = append(results, domain.UploadResult{Kind: f.Kind, OK: true, URL: url})
	}
	return results
}
