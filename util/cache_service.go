// util/cache_service.go

package util

import (
	"context"

	"github.com/workforcehq/aegis/db"
	"github.com/workforcehq/aegis/model"
)

// CacheService wraps the redis-backed profile cache used for subject
// enrichment.
type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetEmployee(ctx context.Context, userID string) (*model.Employee, error) {
	return db.GetCachedEmployee(ctx, userID)
}

func (c *CacheService) SetEmployee(ctx context.Context, employee model.Employee) error {
	return db.CacheEmployee(ctx, &employee)
}
