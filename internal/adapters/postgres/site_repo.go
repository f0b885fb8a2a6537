package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/core/ports"
)

// SiteRepo implements ports.SiteRepository with pgx.
type SiteRepo struct {
	db *DB
}

var _ ports.SiteRepository = (*SiteRepo)(nil)

// NewSiteRepo creates a new SiteRepo.
func NewSiteRepo(db *DB) *SiteRepo {
	return &SiteRepo{db: db}
}

// ListByCompany returns the active sites of a company in display order.
func (r *SiteRepo) ListByCompany(ctx context.Context, companyID string) ([]domain.Site, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT site_id, name, latitude, longitude
		FROM sites
		WHERE company_id = $1 AND active
		ORDER BY sort_order, site_id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	sites := []domain.Site{}
	for rows.Next() {
		var s domain.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}
