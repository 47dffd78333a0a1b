package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the typed client surface shared by every model.
type Repository[T any] interface {
	FindUnique(ctx context.Context, field string, value any) (*T, error)
	FindFirst(ctx context.Context, q Query) (*T, error)
	FindMany(ctx context.Context, q Query) ([]T, error)
	Create(ctx context.Context, entity *T) error
	CreateMany(ctx context.Context, entities []T) (int64, error)
	Update(ctx context.Context, id string, data map[string]any) (*T, error)
	UpdateMany(ctx context.Context, where Where, data map[string]any) (int64, error)
	Upsert(ctx context.Context, field string, value any, create *T, update map[string]any) (*T, error)
	Delete(ctx context.Context, id string) (*T, error)
	DeleteMany(ctx context.Context, where Where) (int64, error)
	Count(ctx context.Context, where Where) (int64, error)
	Aggregate(ctx context.Context, where Where, spec AggregateSpec) (*AggregateResult, error)
	GroupBy(ctx context.Context, args GroupByArgs) ([]GroupResult, error)
	Schema() *Schema
}

// gormRepository implements Repository on top of gorm. Entity-specific
// repositories embed it and add their own lookups.
type gormRepository[T any] struct {
	db     *gorm.DB
	schema *Schema
}

func newGormRepository[T any](db *gorm.DB, schema *Schema) *gormRepository[T] {
	return &gormRepository[T]{db: db, schema: schema}
}

func (r *gormRepository[T]) Schema() *Schema { return r.schema }

func (r *gormRepository[T]) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *gormRepository[T]) fail(target string, err error) error {
	return translateError(r.schema.Model, target, err)
}

// FindUnique retrieves the record whose unique field equals value.
func (r *gormRepository[T]) FindUnique(ctx context.Context, field string, value any) (*T, error) {
	f, err := r.schema.uniqueField(field)
	if err != nil {
		return nil, err
	}
	v, err := coerce(f, value)
	if err != nil {
		return nil, r.schema.invalid(field, err)
	}
	var entity T
	if err := r.conn(ctx).Where(f.Column+" = ?", v).Take(&entity).Error; err != nil {
		return nil, r.fail(fmt.Sprintf("%s %v", field, value), err)
	}
	return &entity, nil
}

// FindFirst returns the first record matching q.
func (r *gormRepository[T]) FindFirst(ctx context.Context, q Query) (*T, error) {
	q.Take = 1
	list, err := r.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &KnownRequestError{Code: CodeRecordNotFound, Model: r.schema.Model}
	}
	return &list[0], nil
}

// FindMany returns every record matching q.
func (r *gormRepository[T]) FindMany(ctx context.Context, q Query) ([]T, error) {
	db, err := r.schema.apply(r.conn(ctx), q)
	if err != nil {
		return nil, err
	}
	list := make([]T, 0)
	if err := db.Find(&list).Error; err != nil {
		return nil, r.fail("", err)
	}
	return list, nil
}

// Create inserts a new record. Associations are never written implicitly.
func (r *gormRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.conn(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return r.fail("", err)
	}
	return nil
}

// CreateMany inserts records in batches and returns how many were written.
func (r *gormRepository[T]) CreateMany(ctx context.Context, entities []T) (int64, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	res := r.conn(ctx).Omit(clause.Associations).CreateInBatches(entities, 100)
	if res.Error != nil {
		return 0, r.fail("", res.Error)
	}
	return res.RowsAffected, nil
}

// Update applies data to the record with the given id and returns it.
func (r *gormRepository[T]) Update(ctx context.Context, id string, data map[string]any) (*T, error) {
	if err := r.updateWhere(ctx, "id", id, data); err != nil {
		return nil, err
	}
	return r.FindUnique(ctx, "id", id)
}

func (r *gormRepository[T]) updateWhere(ctx context.Context, field string, value any, data map[string]any) error {
	f, err := r.schema.uniqueField(field)
	if err != nil {
		return err
	}
	v, err := coerce(f, value)
	if err != nil {
		return r.schema.invalid(field, err)
	}
	cols, err := r.schema.columns(data)
	if err != nil {
		return err
	}
	target := fmt.Sprintf("%s %v", field, value)
	if len(cols) == 0 {
		_, err := r.FindUnique(ctx, field, value)
		return err
	}
	r.touch(cols)
	res := r.conn(ctx).Model(new(T)).Where(f.Column+" = ?", v).Updates(cols)
	if res.Error != nil {
		return r.fail(target, res.Error)
	}
	if res.RowsAffected == 0 {
		return &KnownRequestError{Code: CodeRecordNotFound, Model: r.schema.Model, Target: target}
	}
	return nil
}

// UpdateMany applies data to every record matching where.
func (r *gormRepository[T]) UpdateMany(ctx context.Context, where Where, data map[string]any) (int64, error) {
	cols, err := r.schema.columns(data)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, nil
	}
	db, err := r.where(r.conn(ctx), where)
	if err != nil {
		return 0, err
	}
	r.touch(cols)
	res := db.Model(new(T)).Updates(cols)
	if res.Error != nil {
		return 0, r.fail("", res.Error)
	}
	return res.RowsAffected, nil
}

// Upsert updates the record whose unique field equals value, or creates it.
func (r *gormRepository[T]) Upsert(ctx context.Context, field string, value any, create *T, update map[string]any) (*T, error) {
	var out *T
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := newGormRepository[T](tx, r.schema)
		_, err := txRepo.FindUnique(ctx, field, value)
		switch {
		case err == nil:
			if err := txRepo.updateWhere(ctx, field, value, update); err != nil {
				return err
			}
			out, err = txRepo.FindUnique(ctx, field, value)
			return err
		case IsNotFound(err):
			if err := txRepo.Create(ctx, create); err != nil {
				return err
			}
			out = create
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, r.fail("", err)
	}
	return out, nil
}

// Delete removes the record with the given id and returns it.
func (r *gormRepository[T]) Delete(ctx context.Context, id string) (*T, error) {
	entity, err := r.FindUnique(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	res := r.conn(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return nil, r.fail("id "+id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &KnownRequestError{Code: CodeRecordNotFound, Model: r.schema.Model, Target: "id " + id}
	}
	return entity, nil
}

// DeleteMany removes every record matching where.
func (r *gormRepository[T]) DeleteMany(ctx context.Context, where Where) (int64, error) {
	db, err := r.where(r.conn(ctx), where)
	if err != nil {
		return 0, err
	}
	res := db.Delete(new(T))
	if res.Error != nil {
		return 0, r.fail("", res.Error)
	}
	return res.RowsAffected, nil
}

// Count returns the number of records matching where.
func (r *gormRepository[T]) Count(ctx context.Context, where Where) (int64, error) {
	db, err := r.where(r.conn(ctx).Model(new(T)), where)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, r.fail("", err)
	}
	return n, nil
}

// where applies a condition; an empty one is allowed to touch every row.
func (r *gormRepository[T]) where(db *gorm.DB, where Where) (*gorm.DB, error) {
	if where.empty() {
		return db.Session(&gorm.Session{AllowGlobalUpdate: true}), nil
	}
	sql, args, err := r.schema.buildWhere(where)
	if err != nil {
		return nil, err
	}
	return db.Where(sql, args...), nil
}

func (r *gormRepository[T]) touch(cols map[string]any) {
	if r.schema.has("updatedAt") {
		cols["updated_at"] = time.Now().UTC()
	}
}
