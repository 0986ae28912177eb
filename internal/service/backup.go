package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/encoding"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
)

// MaxBackupBytes bounds what Restore reads from an uploaded file.
const MaxBackupBytes = 32 << 20

// Export serialises the account's persistent state in the backup format,
// which is the bundle itself.
func (s *Service) Export(ctx context.Context, userID string) ([]byte, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(ws.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}
	s.logAudit(ctx, "backup_export", userID, fmt.Sprintf("bytes=%d", len(out)))
	return out, nil
}

// Restore replaces the whole account with the bundle read from r and writes
// it through immediately. Files saved by other tools in a legacy encoding
// are converted to UTF-8 first. A backup without a team keeps the current
// members so that restoring never locks the operators out.
func (s *Service) Restore(ctx context.Context, userID string, r io.Reader) (domain.Bundle, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return domain.Bundle{}, err
	}

	decoded, err := encoding.NewUTF8Reader(io.LimitReader(r, MaxBackupBytes))
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	var bundle domain.Bundle
	if err := json.NewDecoder(decoded).Decode(&bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if err := store.Validate(userID, bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("%w: settings are missing", ErrInvalidBackup)
	}
	if len(bundle.Settings.Team) == 0 {
		bundle.Settings.Team = ws.Settings().Team
	}
	bundle = bundle.Clone()

	ws.Replace(bundle)
	if err := s.repo.Put(ctx, userID, ws.Snapshot()); err != nil {
		return domain.Bundle{}, fmt.Errorf("saving restored account %s: %w", userID, err)
	}

	s.logAudit(ctx, "backup_restore", userID, fmt.Sprintf("products=%d,sales=%d", len(bundle.Products), len(bundle.Sales)))
	return ws.Snapshot(), nil
}
