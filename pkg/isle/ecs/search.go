package ecs

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/rotisserie/eris"
)

// SearchParam contains parameters for a search. Where is an expr language boolean expression
// evaluated against each entity, see https://expr-lang.org/docs/language-definition. Components
// are exposed under their Name() and the entity key under "_id", e.g. `Health.HP < 5`.
type SearchParam struct {
	Find   []typetag.Tag // Tags every result must hold, must not be empty
	Where  string        // Optional filter expression
	Limit  uint32        // Maximum number of results, 0 means unlimited
	Offset uint32        // Number of matching entities to skip
}

// searchIDKey is the result key holding the entity key.
const searchIDKey = "_id"

// Search returns the entities matching params, each rendered as a map of component name to
// component value. Results are ordered by entity key.
func (s *Store) Search(params SearchParam) ([]map[string]any, error) {
	filter, err := params.compile()
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0)
	var skipped uint32

	for _, key := range s.EntitiesWithAll(params.Find).Sorted() {
		entity := s.render(key)

		if filter != nil {
			matches, err := matchesFilter(filter, entity)
			if err != nil {
				return nil, eris.Wrapf(err, "entity %s", key)
			}
			if !matches {
				continue
			}
		}

		if skipped < params.Offset {
			skipped++
			continue
		}

		results = append(results, entity)
		if params.Limit > 0 && uint32(len(results)) >= params.Limit { //nolint:gosec // len is bounded by Limit
			break
		}
	}

	return results, nil
}

// compile validates the parameters and compiles the where clause, if any.
func (p *SearchParam) compile() (*vm.Program, error) {
	if len(p.Find) == 0 {
		return nil, eris.Wrap(ErrInvalidSearch, "find must not be empty")
	}
	if p.Where == "" {
		return nil, nil //nolint:nilnil // no filter
	}

	program, err := expr.Compile(p.Where, expr.AsBool())
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidSearch, "failed to parse where clause: %v", err)
	}
	return program, nil
}

// render collects every component the entity holds into a map keyed by component name.
func (s *Store) render(key EntityKey) map[string]any {
	idx, ok := s.entities.lookup(key)
	if !ok {
		return map[string]any{searchIDKey: string(key)}
	}

	entity := map[string]any{searchIDKey: string(key)}
	for _, col := range s.columns {
		if col == nil {
			continue
		}
		if comp, ok := col.getAbstract(idx); ok {
			entity[col.name()] = comp
		}
	}
	return entity
}

// matchesFilter runs the compiled where clause against one entity. The program is compiled
// without an environment, so the bool result can only be checked at run time.
func matchesFilter(program *vm.Program, entity map[string]any) (bool, error) {
	output, err := expr.Run(program, entity)
	if err != nil {
		return false, eris.Wrapf(ErrInvalidSearch, "failed to run where clause: %v", err)
	}
	matches, ok := output.(bool)
	if !ok {
		return false, eris.Wrapf(ErrInvalidSearch, "where clause returned %T, not bool", output)
	}
	return matches, nil
}
