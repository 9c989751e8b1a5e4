package feed

import (
	"context"

	"mutari/pkg/types"
)

func (f *Feed) missingCompaniesLocked(offers []*types.Offer) []string {
	if f.companies == nil {
		return nil
	}

	var missing []string
	for _, o := range offers {
		if o.CompanyID == "" {
			continue
		}
		if _, ok := f.company[o.CompanyID]; ok || f.fetching[o.CompanyID] {
			continue
		}
		f.fetching[o.CompanyID] = true
		missing = append(missing, o.CompanyID)
	}
	return missing
}

// fetchCompany loads a company profile once; later offers reuse the cached copy.
func (f *Feed) fetchCompany(ctx context.Context, companyID string) {
	c, err := f.companies.Company(ctx, companyID)

	f.mu.Lock()
	delete(f.fetching, companyID)
	if f.stopped {
		f.mu.Unlock()
		return
	}
	if err != nil {
		f.mu.Unlock()
		f.logger.WithError(err).WithField("company_id", companyID).Warn("failed to load company profile")
		return
	}
	f.company[companyID] = c
	f.mu.Unlock()

	f.emit()
}
