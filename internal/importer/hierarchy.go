package importer

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tillbook/tillbook/internal/database/repository"
)

// maxParentDepth bounds parent-chain walks so a cyclic or otherwise
// malformed legacy hierarchy degrades to the expense default instead of
// looping forever.
const maxParentDepth = 10

// resolvedCategories is the output of the two-pass hierarchy resolution.
type resolvedCategories struct {
	// idMap maps every source category id to a local id: an existing one
	// for merges, a freshly minted one for new records. Root markers are
	// absent. The map is complete before anything dereferences it, which
	// is what makes child-before-parent input ordering safe.
	idMap map[string]string
	// created holds insertion records for the genuinely new categories.
	created []repository.Category
}

// resolveCategories runs the two-pass mapping: pass 1 decides an identity
// for every imported category (user merge decision, silent name merge, or
// new id); pass 2 materializes records for the new ones, dereferencing
// parents through the now-complete map.
func resolveCategories(data ParsedData, mergeDecisions map[string]string, existing []repository.Category, strat importStrategy) resolvedCategories {
	byName := make(map[string]repository.Category, len(existing))
	existingIDs := make(map[string]struct{}, len(existing))
	for _, ec := range existing {
		byName[strings.ToLower(ec.Name)] = ec
		existingIDs[ec.ID] = struct{}{}
	}
	bySourceID := make(map[string]ParsedCategory, len(data.Categories))
	for _, pc := range data.Categories {
		bySourceID[pc.ID] = pc
	}

	res := resolvedCategories{idMap: make(map[string]string, len(data.Categories))}

	// Pass 1: identity resolution for the whole batch.
	for _, pc := range data.Categories {
		if _, ok := rootMarkerType(pc.ID); ok {
			continue
		}
		if target, ok := mergeDecisions[pc.ID]; ok {
			res.idMap[pc.ID] = target
			continue
		}
		if ec, ok := byName[strings.ToLower(pc.Name)]; ok {
			res.idMap[pc.ID] = ec.ID
			continue
		}
		id := uuid.NewString()
		res.idMap[pc.ID] = id
		// Later same-named source ids in this batch merge into the id
		// minted here, mirroring the in-batch dedupe the contexts step
		// does by name.
		byName[strings.ToLower(pc.Name)] = repository.Category{ID: id, Name: pc.Name}
	}

	// Pass 2: materialize only the genuinely new categories, each minted
	// id exactly once.
	domainIndex := map[string]int{}
	materialized := map[string]struct{}{}
	for _, pc := range data.Categories {
		if _, ok := rootMarkerType(pc.ID); ok {
			continue
		}
		// User-approved merges map to an existing local id by contract
		// and are never materialized.
		if _, decided := mergeDecisions[pc.ID]; decided {
			continue
		}
		localID := res.idMap[pc.ID]
		if _, exists := existingIDs[localID]; exists {
			continue
		}
		if _, done := materialized[localID]; done {
			continue
		}
		materialized[localID] = struct{}{}
		typ := normalizeType(pc.Type)
		if strat.walkTypes || typ == "" {
			typ = resolveCategoryType(pc.ID, bySourceID)
		}

		color := pc.Color
		if strat.regenerateColors || color == "" {
			color = paletteColor(typ, domainIndex[typ])
			domainIndex[typ]++
		}

		var parentID *string
		if pc.ParentID != "" {
			if _, isRoot := rootMarkerType(pc.ParentID); !isRoot {
				if mapped, ok := res.idMap[pc.ParentID]; ok {
					parentID = &mapped
				}
			}
		}

		active := true
		if pc.Active != nil {
			active = *pc.Active
		}

		res.created = append(res.created, repository.Category{
			ID:       localID,
			ParentID: parentID,
			Name:     pc.Name,
			Type:     typ,
			Icon:     validIcon(pc.Icon),
			Color:    color,
			Active:   active,
		})
	}
	return res
}

// resolveCategoryType walks the source parent chain until a reserved root
// marker names the domain. A broken chain, an unknown type, or more than
// maxParentDepth hops falls back to expense.
func resolveCategoryType(sourceID string, bySourceID map[string]ParsedCategory) string {
	id := sourceID
	for i := 0; i <= maxParentDepth; i++ {
		if typ, ok := rootMarkerType(id); ok {
			return typ
		}
		pc, ok := bySourceID[id]
		if !ok || pc.ParentID == "" {
			break
		}
		id = pc.ParentID
	}
	return repository.TypeExpense
}

// knownIcons is the fixed icon set the app ships with. Anything else from a
// foreign export falls back to the generic tag icon.
var knownIcons = map[string]struct{}{
	"tag": {}, "banknote": {}, "shopping-cart": {}, "utensils": {}, "car": {},
	"receipt": {}, "film": {}, "heart": {}, "trending-up": {}, "home": {},
	"gift": {}, "plane": {}, "book": {}, "phone": {}, "wallet": {},
	"coffee": {}, "shirt": {}, "fuel": {}, "paw-print": {}, "help-circle": {},
}

const fallbackIcon = "tag"

func validIcon(name string) string {
	if _, ok := knownIcons[name]; ok {
		return name
	}
	return fallbackIcon
}
