package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/alexanderramin/routinebuzz/internal/repository"
)

// ImportCatalog validates cat and upserts every section in one transaction.
// Nothing is written when validation fails.
func ImportCatalog(ctx context.Context, uow db.UnitOfWork, cat *CatalogFile) (int, error) {
	if errs := ValidateCatalog(cat); len(errs) > 0 {
		return 0, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sections := repository.NewSQLiteSectionRepo(tx)
		for _, s := range cat.Sections {
			if err := sections.Upsert(ctx, s); err != nil {
				return fmt.Errorf("importing section %d: %w", s.SectionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(cat.Sections), nil
}
