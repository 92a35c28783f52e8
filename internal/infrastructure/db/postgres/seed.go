package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
}

// SeedAccounts creates one active and one inactive dev account. Duplicates
// are skipped so restarts are safe. Both the postgres and memory stores
// satisfy SeederRepo.
func SeedAccounts(ctx context.Context, repo SeederRepo, hasher SeederHasher, lg zerolog.Logger) int {
	seeds := []struct {
		Email  string
		Name   string
		Status domain.AccountStatus
		Pass   string
	}{
		{Email: "owner@maintenance.local", Name: "Fleet Owner", Status: domain.StatusActive, Pass: "OwnerPassword123!"},
		{Email: "retired@maintenance.local", Name: "Retired Mechanic", Status: domain.StatusInactive, Pass: "RetiredPassword123!"},
	}

	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			lg.Warn().Err(err).Str("email", s.Email).Msg("seed hash failed")
			continue
		}

		_, err = repo.Create(ctx, domain.Account{
			ID:           uuid.NewString(),
			Email:        s.Email,
			Name:         s.Name,
			Status:       s.Status,
			PasswordHash: hash,
		})
		if err != nil {
			if !isDuplicateEmail(err) {
				lg.Warn().Err(err).Str("email", s.Email).Msg("seed create failed")
			}
			continue
		}
		created++
	}

	lg.Info().Int("created", created).Msg("dev accounts seeded")
	return created
}

// isDuplicateEmail matches the error both stores return for an existing email.
func isDuplicateEmail(err error) bool {
	var de *domain.Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == "invalid_field" && de.Meta["field"] == "email"
}
