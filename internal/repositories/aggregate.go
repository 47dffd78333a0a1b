package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// AggregateSpec selects the aggregates to compute. Avg and Sum accept numeric
// fields only; Min and Max accept any sortable field.
type AggregateSpec struct {
	Count bool
	Avg   []string
	Sum   []string
	Min   []string
	Max   []string
}

func (s AggregateSpec) empty() bool {
	return !s.Count && len(s.Avg) == 0 && len(s.Sum) == 0 && len(s.Min) == 0 && len(s.Max) == 0
}

// AggregateResult holds computed aggregates keyed by field name. Avg and Sum
// are nil for an empty set.
type AggregateResult struct {
	Count *int64                      `json:"_count,omitempty"`
	Avg   map[string]*decimal.Decimal `json:"_avg,omitempty"`
	Sum   map[string]*decimal.Decimal `json:"_sum,omitempty"`
	Min   map[string]any              `json:"_min,omitempty"`
	Max   map[string]any              `json:"_max,omitempty"`
}

// GroupByArgs holds the arguments of groupBy.
type GroupByArgs struct {
	By        []string
	Where     Where
	Aggregate AggregateSpec
	// OrderBy accepts the grouped fields and "_count".
	OrderBy []Order
	Skip    int
	Take    int
}

// GroupResult is one group: its key fields and their aggregates.
type GroupResult struct {
	By map[string]any `json:"by"`
	AggregateResult
}

const countAlias = "agg_count"

type aggExpr struct {
	fn    string
	field Field
}

func (a aggExpr) alias() string { return a.fn + "__" + a.field.Column }

func (s *Schema) aggregateExprs(spec AggregateSpec) ([]string, []aggExpr, error) {
	var (
		selects []string
		exprs   []aggExpr
	)
	if spec.Count {
		selects = append(selects, "COUNT(*) AS "+countAlias)
	}
	add := func(fn string, names []string, numericOnly bool) error {
		for _, name := range names {
			f, err := s.Field(name)
			if err != nil {
				return err
			}
			if numericOnly && !f.Kind.numeric() {
				return &ValidationError{Model: s.Model, Field: name, Reason: fmt.Sprintf("%s requires a numeric field", fn)}
			}
			if f.Kind == KindJSON || f.Kind == KindBool {
				return &ValidationError{Model: s.Model, Field: name, Reason: fmt.Sprintf("%s is not supported for %s fields", fn, f.Kind)}
			}
			e := aggExpr{fn: fn, field: f}
			selects = append(selects, fmt.Sprintf("%s(%s) AS %s", strings.ToUpper(fn), f.Column, e.alias()))
			exprs = append(exprs, e)
		}
		return nil
	}
	if err := add("avg", spec.Avg, true); err != nil {
		return nil, nil, err
	}
	if err := add("sum", spec.Sum, true); err != nil {
		return nil, nil, err
	}
	if err := add("min", spec.Min, false); err != nil {
		return nil, nil, err
	}
	if err := add("max", spec.Max, false); err != nil {
		return nil, nil, err
	}
	return selects, exprs, nil
}

// Aggregate computes count, avg, sum, min and max over the records matching where.
func (r *gormRepository[T]) Aggregate(ctx context.Context, where Where, spec AggregateSpec) (*AggregateResult, error) {
	if spec.empty() {
		return nil, &ValidationError{Model: r.schema.Model, Reason: "no aggregate selected"}
	}
	selects, exprs, err := r.schema.aggregateExprs(spec)
	if err != nil {
		return nil, err
	}
	db, err := r.where(r.conn(ctx).Model(new(T)), where)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, 1)
	if err := db.Select(strings.Join(selects, ", ")).Find(&rows).Error; err != nil {
		return nil, r.fail("", err)
	}
	row := map[string]any{}
	if len(rows) > 0 {
		row = rows[0]
	}
	return readAggregates(row, spec.Count, exprs)
}

// GroupBy groups the records matching args.Where by args.By and computes the
// selected aggregates per group.
func (r *gormRepository[T]) GroupBy(ctx context.Context, args GroupByArgs) ([]GroupResult, error) {
	if len(args.By) == 0 {
		return nil, &ValidationError{Model: r.schema.Model, Reason: "groupBy needs at least one field"}
	}
	if args.Skip < 0 || args.Take < 0 {
		return nil, &ValidationError{Model: r.schema.Model, Reason: "skip and take must not be negative"}
	}
	byFields := make([]Field, 0, len(args.By))
	var selects, groups []string
	for _, name := range args.By {
		f, err := r.schema.Field(name)
		if err != nil {
			return nil, err
		}
		if f.Kind == KindJSON {
			return nil, &ValidationError{Model: r.schema.Model, Field: name, Reason: "json fields cannot be grouped"}
		}
		byFields = append(byFields, f)
		selects = append(selects, f.Column)
		groups = append(groups, f.Column)
	}
	aggSelects, exprs, err := r.schema.aggregateExprs(args.Aggregate)
	if err != nil {
		return nil, err
	}
	selects = append(selects, aggSelects...)

	db, err := r.where(r.conn(ctx).Model(new(T)), args.Where)
	if err != nil {
		return nil, err
	}
	db = db.Select(strings.Join(selects, ", ")).Group(strings.Join(groups, ", "))

	orders := args.OrderBy
	if len(orders) == 0 {
		for _, name := range args.By {
			orders = append(orders, Order{Field: name})
		}
	}
	for _, o := range orders {
		col, err := r.groupOrderColumn(o.Field, args)
		if err != nil {
			return nil, err
		}
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: col, Raw: col == countAlias}, Desc: o.Desc})
	}
	if args.Skip > 0 {
		db = db.Offset(args.Skip)
	}
	if args.Take > 0 {
		db = db.Limit(args.Take)
	}

	rows := make([]map[string]any, 0)
	if err := db.Find(&rows).Error; err != nil {
		return nil, r.fail("", err)
	}
	out := make([]GroupResult, 0, len(rows))
	for _, row := range rows {
		key := make(map[string]any, len(byFields))
		for _, f := range byFields {
			v, err := normalize(f.Kind, row[f.Column])
			if err != nil {
				return nil, r.fail("", err)
			}
			key[f.Name] = v
		}
		agg, err := readAggregates(row, args.Aggregate.Count, exprs)
		if err != nil {
			return nil, r.fail("", err)
		}
		out = append(out, GroupResult{By: key, AggregateResult: *agg})
	}
	return out, nil
}

func (r *gormRepository[T]) groupOrderColumn(name string, args GroupByArgs) (string, error) {
	if name == "_count" {
		if !args.Aggregate.Count {
			return "", &ValidationError{Model: r.schema.Model, Field: name, Reason: "ordering by _count requires the count aggregate"}
		}
		return countAlias, nil
	}
	for _, by := range args.By {
		if by == name {
			f, err := r.schema.Field(name)
			if err != nil {
				return "", err
			}
			return f.Column, nil
		}
	}
	return "", &ValidationError{Model: r.schema.Model, Field: name, Reason: "groupBy can only order by grouped fields"}
}

func readAggregates(row map[string]any, count bool, exprs []aggExpr) (*AggregateResult, error) {
	res := &AggregateResult{}
	if count {
		n, err := toInt64(row[countAlias])
		if err != nil {
			return nil, err
		}
		res.Count = &n
	}
	for _, e := range exprs {
		raw := row[e.alias()]
		switch e.fn {
		case "avg", "sum":
			d, err := toDecimal(raw)
			if err != nil {
				return nil, err
			}
			if e.fn == "avg" {
				if res.Avg == nil {
					res.Avg = map[string]*decimal.Decimal{}
				}
				res.Avg[e.field.Name] = d
			} else {
				if res.Sum == nil {
					res.Sum = map[string]*decimal.Decimal{}
				}
				res.Sum[e.field.Name] = d
			}
		case "min", "max":
			v, err := normalize(e.field.Kind, raw)
			if err != nil {
				return nil, err
			}
			if e.fn == "min" {
				if res.Min == nil {
					res.Min = map[string]any{}
				}
				res.Min[e.field.Name] = v
			} else {
				if res.Max == nil {
					res.Max = map[string]any{}
				}
				res.Max[e.field.Name] = v
			}
		}
	}
	return res, nil
}

// normalize converts a raw driver value into the Go type of the field kind.
// sqlite and postgres disagree on how they return numerics, booleans and times.
func normalize(kind FieldKind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch kind {
	case KindInt:
		return toInt64(raw)
	case KindDecimal:
		d, err := toDecimal(raw)
		if err != nil || d == nil {
			return nil, err
		}
		return *d, nil
	case KindBool:
		switch b := raw.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case []byte:
			return strconv.ParseBool(string(b))
		case string:
			return strconv.ParseBool(b)
		}
	case KindDateTime:
		switch t := raw.(type) {
		case time.Time:
			return t.UTC(), nil
		case []byte:
			return parseStoredTime(string(t))
		case string:
			return parseStoredTime(t)
		}
	case KindString:
		switch s := raw.(type) {
		case []byte:
			return string(s), nil
		default:
			return fmt.Sprint(s), nil
		}
	}
	return raw, nil
}

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse stored time %q", s)
}

func toInt64(raw any) (int64, error) {
	switch n := raw.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected integer value %T", raw)
}

func toDecimal(raw any) (*decimal.Decimal, error) {
	var d decimal.Decimal
	switch n := raw.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		d = n
	case float64:
		d = decimal.NewFromFloat(n)
	case float32:
		d = decimal.NewFromFloat32(n)
	case int64:
		d = decimal.NewFromInt(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case []byte:
		parsed, err := decimal.NewFromString(string(n))
		if err != nil {
			return nil, err
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(n)
		if err != nil {
			return nil, err
		}
		d = parsed
	default:
		return nil, fmt.Errorf("unexpected numeric value %T", raw)
	}
	return &d, nil
}
