package glpi

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// EntityResolver picks the organizational entity to bill a ticket against
// when the requester's directory record carries no binding. Priority
// keywords encode the convention that certain sub-trees are the canonical
// home for client entities; a match inside one of those sub-trees always
// outranks a bare name match elsewhere in the catalog.
type EntityResolver struct {
	priorities []string
	logger     *zap.Logger
}

// NewEntityResolver creates a resolver with the given priority-keyword
// groups, tried in order.
func NewEntityResolver(priorities []string, logger *zap.Logger) *EntityResolver {
	return &EntityResolver{priorities: priorities, logger: logger}
}

// Resolve scans the catalog for the entity matching the target display
// name. Tier 1 walks the priority keywords in order and requires both the
// keyword in the entity's full path and a name match; tier 2 accepts any
// entity whose short name contains the target. The catalog is walked in
// ascending id order so repeated calls are deterministic.
func (r *EntityResolver) Resolve(entities map[int]Entity, target string) (int, bool) {
	if len(entities) == 0 || strings.TrimSpace(target) == "" {
		return 0, false
	}
	targetLower := strings.ToLower(target)

	ids := make([]int, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, keyword := range r.priorities {
		keywordLower := strings.ToLower(keyword)
		for _, id := range ids {
			entity := entities[id]
			if !strings.Contains(strings.ToLower(entity.CompleteName), keywordLower) {
				continue
			}
			if nameMatches(entity.Name, targetLower) {
				r.logger.Info("entité trouvée via le groupe prioritaire",
					zap.String("keyword", keyword),
					zap.String("entity", entity.Name),
					zap.Int("entity_id", id),
					zap.String("completename", entity.CompleteName))
				return id, true
			}
		}
	}

	for _, id := range ids {
		entity := entities[id]
		if strings.Contains(strings.ToLower(entity.Name), targetLower) {
			r.logger.Info("entité trouvée",
				zap.String("entity", entity.Name),
				zap.Int("entity_id", id),
				zap.String("completename", entity.CompleteName))
			return id, true
		}
	}

	r.logger.Warn("aucune entité trouvée", zap.String("target", target))
	return 0, false
}

// nameMatches checks the case-insensitive substring relation in both
// directions: abbreviated directory names must still match their longer
// entity labels and vice versa.
func nameMatches(entityName, targetLower string) bool {
	nameLower := strings.ToLower(entityName)
	if nameLower == "" {
		return false
	}
	return strings.Contains(nameLower, targetLower) || strings.Contains(targetLower, nameLower)
}
