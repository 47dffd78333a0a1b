package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"supplymarket/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultTake = 20
	maxTake     = 100
)

// Query string keys that are not filters.
var reservedParams = map[string]bool{
	"orderBy": true, "skip": true, "take": true, "include": true,
	"q": true, "by": true,
}

// parseListQuery reads filters, ordering, pagination and includes from the
// query string. Filters are written field=value or field__op=value; an "i"
// prefix on contains, startsWith and endsWith ignores case.
func parseListQuery(c *fiber.Ctx) (repositories.Query, error) {
	q := repositories.Query{Take: defaultTake}
	where, err := parseWhere(c)
	if err != nil {
		return q, err
	}
	q.Where = where

	if v := c.Query("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, fmt.Errorf("skip must be a non-negative integer")
		}
		q.Skip = n
	}
	if v := c.Query("take"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, fmt.Errorf("take must be a positive integer")
		}
		if n > maxTake {
			n = maxTake
		}
		q.Take = n
	}
	for _, name := range splitList(c.Query("orderBy")) {
		if strings.HasPrefix(name, "-") {
			q.OrderBy = append(q.OrderBy, repositories.Order{Field: name[1:], Desc: true})
		} else {
			q.OrderBy = append(q.OrderBy, repositories.Order{Field: name})
		}
	}
	q.Include = splitList(c.Query("include"))
	return q, nil
}

// parseWhere reads only the filter part of the query string.
func parseWhere(c *fiber.Ctx) (repositories.Where, error) {
	var (
		where    repositories.Where
		parseErr error
	)
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		if parseErr != nil {
			return
		}
		key, value := string(k), string(v)
		if reservedParams[key] {
			return
		}
		f, err := parseFilter(key, value)
		if err != nil {
			parseErr = err
			return
		}
		where.Filters = append(where.Filters, f)
	})
	return where, parseErr
}

func parseFilter(key, value string) (repositories.Filter, error) {
	field, op, hasOp := strings.Cut(key, "__")
	f := repositories.Filter{Field: field, Op: repositories.OpEquals, Value: value}
	if !hasOp {
		return f, nil
	}
	switch op {
	case "icontains", "istartsWith", "iendsWith":
		f.Insensitive = true
		op = op[1:]
	}
	f.Op = repositories.Op(op)
	switch f.Op {
	case repositories.OpEquals, repositories.OpNot, repositories.OpLt, repositories.OpLte,
		repositories.OpGt, repositories.OpGte, repositories.OpContains,
		repositories.OpStartsWith, repositories.OpEndsWith, repositories.OpIsNull:
	case repositories.OpIn, repositories.OpNotIn:
		f.Value = splitList(value)
	default:
		return f, fmt.Errorf("unknown filter operator %q on %s", op, field)
	}
	return f, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func badQuery(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid query parameters",
		"error":   err.Error(),
	})
}
