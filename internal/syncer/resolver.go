package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/classtrack/schoolsync-backend/internal/logger"
)

// ErrBadFieldName reports a foreign-key field name that does not follow the
// <source_prefix>_<related_type>_id convention. This is a mapping defect,
// not a data problem, and aborts the run.
var ErrBadFieldName = errors.New("syncer: malformed foreign key field name")

type refKey struct {
	entityType string
	sourceID   int64
}

// RefCache memoizes successful source-id resolutions for the lifetime of
// one orchestrator run. Misses are never cached: a row that has not been
// synced yet can still resolve later in the same pass, once its owner
// stage has run.
type RefCache struct {
	m map[refKey]uuid.UUID
}

func NewRefCache() *RefCache {
	return &RefCache{m: map[refKey]uuid.UUID{}}
}

func (c *RefCache) get(entityType string, sourceID int64) (uuid.UUID, bool) {
	id, ok := c.m[refKey{entityType, sourceID}]
	return id, ok
}

func (c *RefCache) put(entityType string, sourceID int64, id uuid.UUID) {
	c.m[refKey{entityType, sourceID}] = id
}

// Resolver turns raw source-space foreign key values into internal ids. One
// resolver (and its cache) belongs to exactly one reconciliation run; the
// internal store may change between runs, so caches never outlive one.
type Resolver struct {
	store Store
	cache *RefCache
	log   *logger.Logger
}

func NewResolver(store Store, baseLog *logger.Logger) *Resolver {
	return &Resolver{
		store: store,
		cache: NewRefCache(),
		log:   baseLog.With("component", "Resolver"),
	}
}

// Resolve maps a foreign key field and its raw source value to the internal
// target field and id. ok=false means the reference is soft-unresolved
// (nothing to resolve, or the related row has not been synced yet) and the
// field should simply be omitted.
func (r *Resolver) Resolve(ctx context.Context, fieldName string, raw any) (targetField string, id uuid.UUID, ok bool, err error) {
	related, targetField, err := parseFKField(fieldName)
	if err != nil {
		return "", uuid.Nil, false, err
	}

	sourceID, present := asInt64(raw)
	if !present || sourceID == 0 {
		return targetField, uuid.Nil, false, nil
	}

	if cached, hit := r.cache.get(related, sourceID); hit {
		return targetField, cached, true, nil
	}

	id, found, err := r.store.LookupBySource(ctx, related, sourceID)
	if err != nil {
		return targetField, uuid.Nil, false, err
	}
	if !found {
		// Not yet synced. Not cached, so a later call in this pass can
		// still succeed once the owning stage has run.
		return targetField, uuid.Nil, false, nil
	}
	r.cache.put(related, sourceID, id)
	return targetField, id, true, nil
}

// parseFKField extracts the related entity type from a field named
// <source_prefix>_<related_type>_id. The literal "user" aliases to
// "user_profile": the mirror speaks of users where the pull schema has
// staff profiles.
func parseFKField(fieldName string) (related, targetField string, err error) {
	parts := strings.Split(fieldName, "_")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%w: %q has fewer than 3 segments", ErrBadFieldName, fieldName)
	}
	related = strings.Join(parts[1:len(parts)-1], "_")
	if related == "user" {
		related = TypeStaff
	}
	return related, related + "_id", nil
}

// asInt64 coerces the value shapes mirror rows actually carry for ids.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		if n == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case nil:
		return 0, false
	default:
		return 0, false
	}
}
