package carerecipients

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Authorize valida que careRecipientID exista y pertenezca a userID.
// Lo usan los demás módulos (records, emergencyinfo, carestats) a través
// de una interfaz propia para no importar este paquete.
func (s *Service) Authorize(ctx context.Context, careRecipientID, userID string) error {
	careRecipientID = strings.TrimSpace(careRecipientID)
	userID = strings.TrimSpace(userID)
	if careRecipientID == "" || userID == "" {
		return ErrInvalidInput
	}

	c, err := s.repo.GetByID(ctx, careRecipientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load care recipient: %w", err)
	}
	if c.OwnerUserID != userID {
		return ErrForbidden
	}
	return nil
}
