package server

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/config"
	"swapscan/internal/models"
	"swapscan/internal/store"
)

// Resolver answers the query root against the indexed database.
type Resolver struct {
	db      store.Reader
	contest *config.ContestProfile
}

// NewResolver builds the root resolver.
func NewResolver(db store.Reader, contest *config.ContestProfile) *Resolver {
	return &Resolver{db: db, contest: contest}
}

// listArgs are the paging and ordering arguments shared by the list
// queries. OrderBy takes the storage field name.
type listArgs struct {
	First            int32
	Skip             int32
	OrderBy          *string
	OrderByDirection string
}

func (a listArgs) query() store.FindQuery {
	q := store.FindQuery{Skip: int64(a.Skip), Limit: int64(a.First)}
	if a.OrderBy != nil {
		q.OrderBy = *a.OrderBy
	}
	q.Desc = a.OrderByDirection == "desc"
	return q
}

// blockConstraint pins versioned entities to their state at a block.
type blockConstraint struct {
	Number *int32
}

func (b *blockConstraint) at() *int64 {
	if b == nil || b.Number == nil {
		return nil
	}
	n := int64(*b.Number)
	return &n
}

func hexIn(vals []FieldElement) bson.A {
	list := make(bson.A, len(vals))
	for i, v := range vals {
		list[i] = string(v)
	}
	return list
}

func (r *Resolver) tokenByID(ctx context.Context, id string) (*tokenResolver, error) {
	l, err := loadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := l.token.Load(ctx, id)()
	if err != nil {
		return nil, err
	}
	return &tokenResolver{doc: doc}, nil
}

func (r *Resolver) pairByID(ctx context.Context, id string) (*pairResolver, error) {
	l, err := loadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := l.pair.Load(ctx, id)()
	if err != nil {
		return nil, err
	}
	return &pairResolver{r: r, doc: doc}, nil
}

func (r *Resolver) userByID(ctx context.Context, id string) (*userResolver, error) {
	l, err := loadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := l.user.Load(ctx, id)()
	if err != nil {
		return nil, err
	}
	return &userResolver{doc: doc}, nil
}

// timeRange folds optional bounds into one operator document.
func timeRange(f bson.M, key string, lt, gt *Time) {
	cond := bson.M{}
	if lt != nil {
		cond["$lt"] = lt.Time
	}
	if gt != nil {
		cond["$gt"] = gt.Time
	}
	if len(cond) > 0 {
		f[key] = cond
	}
}

func dec(doc bson.M, key string) Decimal {
	return Decimal{models.Dec(doc, key)}
}
