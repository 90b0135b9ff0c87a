package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"mobicomm_store/internal/models"
)

// catalogCacheTTL keeps catalog reads cheap without letting admin edits
// go stale for long
const catalogCacheTTL = 5 * time.Minute

// CatalogService loads and filters the recharge plan catalog. All
// operations are read-only and idempotent; cache may be nil.
type CatalogService struct {
	backend *BackendClient
	cache   *RedisCache
}

func NewCatalogService(backend *BackendClient, cache *RedisCache) *CatalogService {
	return &CatalogService{backend: backend, cache: cache}
}

// LoadCategories lists the catalog categories
func (s *CatalogService) LoadCategories(ctx context.Context) ([]models.Category, error) {
	return GetOrSet(s.cache, ctx, "catalog:categories", catalogCacheTTL, func() ([]models.Category, error) {
		return s.backend.Categories(ctx)
	})
}

// LoadPlansForCategory lists one category's plans
func (s *CatalogService) LoadPlansForCategory(ctx context.Context, categoryID int) ([]models.Plan, error) {
	key := "catalog:plans:" + strconv.Itoa(categoryID)
	return GetOrSet(s.cache, ctx, key, catalogCacheTTL, func() ([]models.Plan, error) {
		return s.backend.PlansForCategory(ctx, categoryID)
	})
}

// LoadCatalog fetches every category's plans concurrently. Failures are
// isolated per category: a pane ends up with either its plans or an
// inline error, and one bad category never blanks the others. Pane
// order follows the category order from the backend.
func (s *CatalogService) LoadCatalog(ctx context.Context) ([]models.CategoryPane, error) {
	categories, err := s.LoadCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	panes := make([]models.CategoryPane, len(categories))
	var wg sync.WaitGroup
	for i, category := range categories {
		panes[i].Category = category

		wg.Add(1)
		go func(i, categoryID int) {
			defer wg.Done()
			plans, err := s.LoadPlansForCategory(ctx, categoryID)
			if err != nil {
				panes[i].LoadError = fmt.Sprintf("Failed to load plans: %v", err)
				return
			}
			panes[i].Plans = plans
		}(i, category.CategoryID)
	}
	wg.Wait()

	return panes, nil
}

// PlanFilter is the catalog search form: free text plus optional
// structured filters on data allowance and validity.
type PlanFilter struct {
	Query    string
	Data     string
	Validity string
}

// IsZero reports whether the filter would match everything
func (f PlanFilter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && f.Data == "" && f.Validity == ""
}

// FilterPlans is a pure, synchronous filter over already-loaded plans;
// no network call is ever made. Free text matches against the plan's
// rendered text, or exactly against the price.
func FilterPlans(plans []models.Plan, filter PlanFilter) []models.Plan {
	if filter.IsZero() {
		return plans
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	dataFilter := strings.ToLower(filter.Data)
	validityFilter := strings.ToLower(filter.Validity)

	var matched []models.Plan
	for _, plan := range plans {
		text := strings.ToLower(strings.Join([]string{
			plan.PlanName, plan.Data, plan.Validity, plan.Calls,
			plan.SMS, plan.Benefits, formatPrice(plan.Price),
		}, " "))

		matchesSearch := query == "" ||
			strings.Contains(text, query) ||
			formatPrice(plan.Price) == query
		matchesData := dataFilter == "" || strings.Contains(strings.ToLower(plan.Data), dataFilter)
		matchesValidity := validityFilter == "" || strings.Contains(strings.ToLower(plan.Validity), validityFilter)

		if matchesSearch && matchesData && matchesValidity {
			matched = append(matched, plan)
		}
	}
	return matched
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
