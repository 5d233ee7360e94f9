package postgres

import (
	"context"

	"github.com/fitclub/billing/internal/cache"
	"github.com/fitclub/billing/internal/domain/plan"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/postgres"
)

type planRepository struct {
	client *postgres.Client
	log    *logger.Logger
	cache  cache.Cache
}

func NewPlanRepository(client *postgres.Client, log *logger.Logger, cache cache.Cache) plan.Repository {
	return &planRepository{
		client: client,
		log:    log,
		cache:  cache,
	}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	if p.Code == "" {
		p.Code = p.ID
	}

	span := StartRepositorySpan(ctx, "plan", "create", map[string]interface{}{"plan_id": p.ID})
	defer FinishSpan(span)

	row := planRowFrom(p)
	if err := r.client.DB(ctx).Create(row).Error; err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A plan with this code already exists").
				WithReportableDetails(map[string]any{"plan_id": p.ID, "code": p.Code}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create plan").
			WithReportableDetails(map[string]any{"plan_id": p.ID}).
			Mark(ierr.ErrDatabase)
	}

	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	if cached := r.getCache(ctx, id); cached != nil {
		return cached, nil
	}

	span := StartRepositorySpan(ctx, "plan", "get", map[string]interface{}{"plan_id": id})
	defer FinishSpan(span)

	var row planRow
	if err := r.client.DB(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		SetSpanError(span, err)
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Plan with ID %s was not found", id).
				WithReportableDetails(map[string]any{"plan_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Failed to get plan with ID %s", id).
			Mark(ierr.ErrDatabase)
	}

	p := row.toDomain()
	r.setCache(ctx, p)
	return p, nil
}

func (r *planRepository) GetByCode(ctx context.Context, code string) (*plan.Plan, error) {
	var row planRow
	if err := r.client.DB(ctx).Where("code = ?", code).Take(&row).Error; err != nil {
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Plan with code %s was not found", code).
				WithReportableDetails(map[string]any{"code": code}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Failed to get plan with code %s", code).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *planRepository) getCache(ctx context.Context, id string) *plan.Plan {
	span := cache.StartCacheSpan(ctx, "get", id)
	defer cache.FinishSpan(span)

	value, found := r.cache.Get(ctx, cache.GenerateKey(cache.PrefixPlan, id))
	if !found {
		return nil
	}
	p, ok := cache.UnmarshalCacheValue[plan.Plan](value)
	if !ok {
		return nil
	}
	// callers may mutate what they get back
	copied := *p
	return &copied
}

func (r *planRepository) setCache(ctx context.Context, p *plan.Plan) {
	copied := *p
	r.cache.Set(ctx, cache.GenerateKey(cache.PrefixPlan, p.ID), &copied, cache.ExpiryPlan)
}
