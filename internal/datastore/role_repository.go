package datastore

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/safetrack/safetrack/internal/datastore/entities"
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
	"github.com/safetrack/safetrack/internal/observability/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	tableUserRoles = "user_roles"
	roleCacheType  = "roles"
)

var knownRoles = []inspection.Role{
	inspection.RoleAdmin,
	inspection.RoleSupervisor,
	inspection.RoleOperario,
	inspection.RoleAuditor,
}

// RoleRepository resolves user roles from user_roles with a TTL cache in front.
type RoleRepository struct {
	db      *gorm.DB
	cache   *cache.Cache
	metrics *Metrics
	log     logger.Logger
}

// NewRoleRepository creates a repository. Lookups are cached for ttl; a zero
// ttl disables caching.
func NewRoleRepository(m *Manager, ttl time.Duration) *RoleRepository {
	r := &RoleRepository{
		db:      m.db,
		metrics: m.metrics,
		log:     m.log.Module("roles"),
	}
	if ttl > 0 {
		// No janitor: expired entries are replaced on the next lookup.
		r.cache = cache.New(ttl, 0)
	}
	return r
}

// Roles returns the roles granted to userID.
func (r *RoleRepository) Roles(ctx context.Context, userID string) ([]inspection.Role, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(userID); ok {
			r.recordCache(metrics.StatusHit)
			return slices.Clone(cached.([]inspection.Role)), nil
		}
		r.recordCache(metrics.StatusMiss)
	}

	start := time.Now()
	var names []string
	err := r.db.WithContext(ctx).
		Model(&entities.UserRole{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &names).Error
	if err != nil {
		err = dbError(err, "get_roles", errors.PriorityMedium, "user_id", userID)
		observe(r.metrics, metrics.OpDbQuery, tableUserRoles, start, err)
		return nil, err
	}
	observe(r.metrics, metrics.OpDbQuery, tableUserRoles, start, nil)

	roles := make([]inspection.Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, inspection.Role(n))
	}
	if r.cache != nil {
		r.cache.SetDefault(userID, slices.Clone(roles))
	}
	return roles, nil
}

// HasAnyRole reports whether userID holds any of roles.
func (r *RoleRepository) HasAnyRole(ctx context.Context, userID string, roles ...inspection.Role) (bool, error) {
	granted, err := r.Roles(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(granted, func(g inspection.Role) bool {
		return slices.Contains(roles, g)
	}), nil
}

// ForUser returns a RoleChecker bound to userID.
func (r *RoleRepository) ForUser(userID string) inspection.RoleChecker {
	return inspection.RoleCheckerFunc(func(ctx context.Context, roles ...inspection.Role) (bool, error) {
		return r.HasAnyRole(ctx, userID, roles...)
	})
}

// Grant gives role to userID. Granting an existing role is a no-op.
func (r *RoleRepository) Grant(ctx context.Context, userID string, role inspection.Role) error {
	if !slices.Contains(knownRoles, role) {
		return validationError(ErrUnknownRole, "role", role)
	}

	start := time.Now()
	row := entities.UserRole{ID: uuid.NewString(), UserID: userID, Role: string(role)}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		err = dbError(err, "grant_role", errors.PriorityMedium, "user_id", userID, "role", string(role))
	}
	observe(r.metrics, metrics.OpDbInsert, tableUserRoles, start, err)
	if err != nil {
		return err
	}

	r.Invalidate(userID)
	r.log.Info("role granted", logger.String("user_id", userID), logger.String("role", string(role)))
	return nil
}

// Revoke removes role from userID.
func (r *RoleRepository) Revoke(ctx context.Context, userID string, role inspection.Role) error {
	start := time.Now()
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, string(role)).
		Delete(&entities.UserRole{}).Error
	if err != nil {
		err = dbError(err, "revoke_role", errors.PriorityMedium, "user_id", userID, "role", string(role))
	}
	observe(r.metrics, metrics.OpDbUpdate, tableUserRoles, start, err)
	if err != nil {
		return err
	}

	r.Invalidate(userID)
	r.log.Info("role revoked", logger.String("user_id", userID), logger.String("role", string(role)))
	return nil
}

// Invalidate drops the cached roles of userID.
func (r *RoleRepository) Invalidate(userID string) {
	if r.cache != nil {
		r.cache.Delete(userID)
	}
}

func (r *RoleRepository) recordCache(result string) {
	if r.metrics != nil {
		r.metrics.RecordCacheOperation(roleCacheType, metrics.OpCacheGet, result)
	}
}
