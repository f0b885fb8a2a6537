package ports

import (
	"context"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

// SiteRepository reads the sites assigned to a company.
type SiteRepository interface {
	ListByCompany(ctx context.Context, companyID string) ([]domain.Site, error)
}
