package service

import (
	"context"

	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/repository"
	apperrors "github.com/spec-kit/turno-service/pkg/util"
)

// SimulatedQRCode bypasses QR validation for drills and load tests, matching
// the operational practice at the cafeterias.
const SimulatedQRCode = "simulado"

// QRService manages the rotating per-cafeteria QR codes students scan when
// requesting a turn.
type QRService struct {
	store      repository.QRStore
	cafeterias repository.CafeteriaRepository
	cfg        config.QRConfig
}

// NewQRService constructs the service.
func NewQRService(store repository.QRStore, cafeterias repository.CafeteriaRepository, cfg config.QRConfig) *QRService {
	return &QRService{store: store, cafeterias: cafeterias, cfg: cfg}
}

// CurrentCode returns the cafeteria's live QR code, minting one when the
// previous code expired.
func (s *QRService) CurrentCode(ctx context.Context, cafeteriaID string) (string, error) {
	if _, err := s.cafeterias.GetByID(ctx, cafeteriaID); err != nil {
		return "", translateRepoError(err, "cafeteria")
	}
	code, err := s.store.Current(ctx, cafeteriaID, s.cfg.TTL())
	if err != nil {
		return "", translateRepoError(err, "qr code")
	}
	return code, nil
}

// Check validates a scanned code against the cafeteria's live QR code. When
// QR validation is disabled by configuration all codes pass.
func (s *QRService) Check(ctx context.Context, cafeteriaID, code string) error {
	if !s.cfg.Required || code == SimulatedQRCode {
		return nil
	}
	if code == "" {
		return apperrors.NewValidationError("qr code required", nil)
	}
	valid, err := s.store.Validate(ctx, cafeteriaID, code)
	if err != nil {
		return translateRepoError(err, "qr code")
	}
	if !valid {
		return apperrors.NewValidationError("qr code invalid or expired", nil)
	}
	return nil
}
