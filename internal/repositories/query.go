package repositories

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Op is a filter operator.
type Op string

const (
	OpEquals     Op = "equals"
	OpNot        Op = "not"
	OpIn         Op = "in"
	OpNotIn      Op = "notIn"
	OpLt         Op = "lt"
	OpLte        Op = "lte"
	OpGt         Op = "gt"
	OpGte        Op = "gte"
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"
	OpIsNull     Op = "isNull"
)

var allowedOps = map[FieldKind][]Op{
	KindString:   {OpEquals, OpNot, OpIn, OpNotIn, OpContains, OpStartsWith, OpEndsWith, OpIsNull},
	KindInt:      {OpEquals, OpNot, OpIn, OpNotIn, OpLt, OpLte, OpGt, OpGte, OpIsNull},
	KindDecimal:  {OpEquals, OpNot, OpIn, OpNotIn, OpLt, OpLte, OpGt, OpGte, OpIsNull},
	KindDateTime: {OpEquals, OpNot, OpIn, OpNotIn, OpLt, OpLte, OpGt, OpGte, OpIsNull},
	KindBool:     {OpEquals, OpNot, OpIsNull},
	KindJSON:     {OpIsNull},
}

// Filter is a single field condition.
type Filter struct {
	Field       string
	Op          Op
	Value       any
	Insensitive bool
}

// Eq is shorthand for an equals filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEquals, Value: value}
}

// Where combines filters. Filters and AND groups must all match; the OR
// group matches when any of its members does; each NOT group must not match.
type Where struct {
	Filters []Filter
	AND     []Where
	OR      []Where
	NOT     []Where
}

// WhereAll builds a Where from AND-ed filters.
func WhereAll(filters ...Filter) Where { return Where{Filters: filters} }

func (w Where) empty() bool {
	return len(w.Filters) == 0 && len(w.AND) == 0 && len(w.OR) == 0 && len(w.NOT) == 0
}

// Order sorts by one field.
type Order struct {
	Field string
	Desc  bool
}

// Query holds the arguments of findMany and findFirst.
type Query struct {
	Where   Where
	OrderBy []Order
	Skip    int
	Take    int
	Include []string
}

// buildWhere renders w as a parameterised SQL condition.
func (s *Schema) buildWhere(w Where) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	for _, f := range w.Filters {
		sql, fargs, err := s.buildFilter(f)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, fargs...)
	}
	for _, sub := range w.AND {
		sql, sargs, err := s.buildWhere(sub)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, "("+sql+")")
		args = append(args, sargs...)
	}
	if len(w.OR) > 0 {
		var alts []string
		for _, sub := range w.OR {
			sql, sargs, err := s.buildWhere(sub)
			if err != nil {
				return "", nil, err
			}
			if sql == "" {
				// An empty alternative matches everything.
				sql = "1 = 1"
			}
			alts = append(alts, "("+sql+")")
			args = append(args, sargs...)
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	for _, sub := range w.NOT {
		sql, sargs, err := s.buildWhere(sub)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, "NOT ("+sql+")")
		args = append(args, sargs...)
	}
	return strings.Join(parts, " AND "), args, nil
}

func (s *Schema) buildFilter(f Filter) (string, []any, error) {
	field, err := s.Field(f.Field)
	if err != nil {
		return "", nil, err
	}
	op := f.Op
	if op == "" {
		op = OpEquals
	}
	if !opAllowed(field.Kind, op) {
		return "", nil, &ValidationError{Model: s.Model, Field: f.Field, Reason: fmt.Sprintf("operator %q is not supported for %s fields", op, field.Kind)}
	}

	col := field.Column
	if f.Insensitive && field.Kind == KindString {
		col = "LOWER(" + col + ")"
	}

	switch op {
	case OpIsNull:
		isNull, err := coerceBool(f.Value)
		if err != nil {
			return "", nil, s.invalid(f.Field, err)
		}
		if isNull {
			return field.Column + " IS NULL", nil, nil
		}
		return field.Column + " IS NOT NULL", nil, nil
	case OpIn, OpNotIn:
		values, err := s.coerceList(field, f.Value)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			// IN () is not portable; an empty set matches nothing.
			if op == OpIn {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}
		if f.Insensitive && field.Kind == KindString {
			for i, v := range values {
				values[i] = strings.ToLower(v.(string))
			}
		}
		if op == OpIn {
			return col + " IN ?", []any{values}, nil
		}
		return col + " NOT IN ?", []any{values}, nil
	case OpContains, OpStartsWith, OpEndsWith:
		str, ok := f.Value.(string)
		if !ok {
			return "", nil, &ValidationError{Model: s.Model, Field: f.Field, Reason: "expected a string value"}
		}
		pattern := escapeLike(str)
		switch op {
		case OpContains:
			pattern = "%" + pattern + "%"
		case OpStartsWith:
			pattern = pattern + "%"
		case OpEndsWith:
			pattern = "%" + pattern
		}
		if f.Insensitive {
			pattern = strings.ToLower(pattern)
		}
		return col + ` LIKE ? ESCAPE '\'`, []any{pattern}, nil
	}

	if f.Value == nil {
		if !field.Nullable {
			return "", nil, &ValidationError{Model: s.Model, Field: f.Field, Reason: "field is not nullable"}
		}
		if op == OpEquals {
			return field.Column + " IS NULL", nil, nil
		}
		if op == OpNot {
			return field.Column + " IS NOT NULL", nil, nil
		}
		return "", nil, &ValidationError{Model: s.Model, Field: f.Field, Reason: "null is only comparable with equals or not"}
	}

	value, err := coerce(field, f.Value)
	if err != nil {
		return "", nil, s.invalid(f.Field, err)
	}
	if f.Insensitive && field.Kind == KindString {
		value = strings.ToLower(value.(string))
	}

	var sqlOp string
	switch op {
	case OpEquals:
		sqlOp = "="
	case OpNot:
		sqlOp = "<>"
	case OpLt:
		sqlOp = "<"
	case OpLte:
		sqlOp = "<="
	case OpGt:
		sqlOp = ">"
	case OpGte:
		sqlOp = ">="
	}
	return col + " " + sqlOp + " ?", []any{value}, nil
}

func (s *Schema) coerceList(field Field, raw any) ([]any, error) {
	rv := reflect.ValueOf(raw)
	if raw == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, &ValidationError{Model: s.Model, Field: field.Name, Reason: "expected a list value"}
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := coerce(field, rv.Index(i).Interface())
		if err != nil {
			return nil, s.invalid(field.Name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Schema) invalid(field string, err error) error {
	return &ValidationError{Model: s.Model, Field: field, Reason: err.Error()}
}

// columns converts a payload keyed by JSON names into column values.
func (s *Schema) columns(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for name, raw := range data {
		field, err := s.Field(name)
		if err != nil {
			return nil, err
		}
		if field.ReadOnly {
			return nil, &ValidationError{Model: s.Model, Field: name, Reason: "field is read-only"}
		}
		if raw == nil {
			if !field.Nullable {
				return nil, &ValidationError{Model: s.Model, Field: name, Reason: "field is not nullable"}
			}
			out[field.Column] = nil
			continue
		}
		v, err := coerce(field, raw)
		if err != nil {
			return nil, s.invalid(name, err)
		}
		out[field.Column] = v
	}
	return out, nil
}

func (s *Schema) orderClauses(orders []Order) ([]clause.OrderByColumn, error) {
	if len(orders) == 0 {
		orders = s.defaultOrder
	}
	cols := make([]clause.OrderByColumn, 0, len(orders)+1)
	hasID := false
	for _, o := range orders {
		field, err := s.Field(o.Field)
		if err != nil {
			return nil, err
		}
		if field.Kind == KindJSON {
			return nil, &ValidationError{Model: s.Model, Field: o.Field, Reason: "field is not sortable"}
		}
		if field.Name == "id" {
			hasID = true
		}
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: field.Column}, Desc: o.Desc})
	}
	if !hasID {
		// Stable pagination needs a unique tie-breaker.
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return cols, nil
}

// apply adds the where, order, pagination and include parts of q to db.
func (s *Schema) apply(db *gorm.DB, q Query) (*gorm.DB, error) {
	if q.Skip < 0 || q.Take < 0 {
		return nil, &ValidationError{Model: s.Model, Reason: "skip and take must not be negative"}
	}
	sql, args, err := s.buildWhere(q.Where)
	if err != nil {
		return nil, err
	}
	if sql != "" {
		db = db.Where(sql, args...)
	}
	orders, err := s.orderClauses(q.OrderBy)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		db = db.Order(o)
	}
	if q.Skip > 0 {
		db = db.Offset(q.Skip)
	}
	if q.Take > 0 {
		db = db.Limit(q.Take)
	}
	for _, rel := range q.Include {
		assoc, err := s.Relation(rel)
		if err != nil {
			return nil, err
		}
		db = db.Preload(assoc)
	}
	return db, nil
}

func opAllowed(kind FieldKind, op Op) bool {
	for _, allowed := range allowedOps[kind] {
		if allowed == op {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// coerce converts a filter or payload value to the Go type of the field.
func coerce(field Field, v any) (any, error) {
	switch field.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			if str, isStringer := v.(fmt.Stringer); isStringer {
				return str.String(), nil
			}
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		return s, nil
	case KindInt:
		return coerceInt(v)
	case KindDecimal:
		return coerceDecimal(v)
	case KindBool:
		return coerceBool(v)
	case KindDateTime:
		return coerceTime(v)
	case KindJSON:
		return coerceStrings(v)
	}
	return nil, fmt.Errorf("unsupported field kind %s", field.Kind)
}

func coerceInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

func coerceDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, fmt.Errorf("expected a decimal, got nil")
		}
		return *n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	}
	return decimal.Decimal{}, fmt.Errorf("expected a decimal, got %T", v)
}

func coerceBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("expected a boolean, got %T", v)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func coerceTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("expected a time, got nil")
		}
		return t.UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as a time", t)
	}
	return time.Time{}, fmt.Errorf("expected a time, got %T", v)
}

func coerceStrings(v any) (datatypes.JSONSlice[string], error) {
	switch list := v.(type) {
	case datatypes.JSONSlice[string]:
		return list, nil
	case []string:
		return datatypes.JSONSlice[string](list), nil
	case []any:
		out := make(datatypes.JSONSlice[string], 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, got %T item", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", v)
}
