package repository

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
)

// Page bounds a listing. A zero Limit returns every row.
type Page struct {
	Offset uint64
	Limit  uint64
}

func (p Page) apply(q sq.SelectBuilder) sq.SelectBuilder {
	if p.Limit == 0 {
		return q
	}
	return q.Limit(p.Limit).Offset(p.Offset)
}

// scoped restricts q to the owners in scope.
func scoped(q sq.SelectBuilder, scope access.Scope, column string) sq.SelectBuilder {
	if scope.All {
		return q
	}
	if len(scope.OwnerIDs) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where(sq.Eq{column: scope.OwnerIDs})
}

// dateArg converts an optional date to a driver argument.
func dateArg(d *model.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}
