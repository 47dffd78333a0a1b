package repositories

import "github.com/iancoleman/strcase"

// FieldKind determines which operators and values a field accepts.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindDecimal
	KindBool
	KindDateTime
	KindJSON
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindJSON:
		return "json"
	}
	return "unknown"
}

func (k FieldKind) numeric() bool { return k == KindInt || k == KindDecimal }

// Field describes one queryable column of a model.
type Field struct {
	Name     string // JSON name
	Column   string
	Kind     FieldKind
	Nullable bool
	Unique   bool
	ReadOnly bool
}

// Schema is the field and relation whitelist of one model. Every column name
// that reaches SQL comes from a Schema.
type Schema struct {
	Model        string
	fields       map[string]Field
	names        []string
	relations    map[string]string
	defaultOrder []Order
}

func newSchema(model string, fields []Field, relations map[string]string, defaultOrder ...Order) *Schema {
	s := &Schema{
		Model:        model,
		fields:       make(map[string]Field, len(fields)),
		relations:    relations,
		defaultOrder: defaultOrder,
	}
	for _, f := range fields {
		if f.Column == "" {
			f.Column = strcase.ToSnake(f.Name)
		}
		s.fields[f.Name] = f
		s.names = append(s.names, f.Name)
	}
	return s
}

// Field looks up a field by its JSON name.
func (s *Schema) Field(name string) (Field, error) {
	f, ok := s.fields[name]
	if !ok {
		return Field{}, &ValidationError{Model: s.Model, Field: name, Reason: "unknown field"}
	}
	return f, nil
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.fields[n])
	}
	return out
}

// Relation resolves an includable relation to its gorm association name.
func (s *Schema) Relation(name string) (string, error) {
	assoc, ok := s.relations[name]
	if !ok {
		return "", &ValidationError{Model: s.Model, Field: name, Reason: "unknown relation"}
	}
	return assoc, nil
}

func (s *Schema) has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

func (s *Schema) uniqueField(name string) (Field, error) {
	f, err := s.Field(name)
	if err != nil {
		return Field{}, err
	}
	if !f.Unique {
		return Field{}, &ValidationError{Model: s.Model, Field: name, Reason: "field is not unique"}
	}
	return f, nil
}

func idField() Field { return Field{Name: "id", Kind: KindString, Unique: true, ReadOnly: true} }

func timestampFields() []Field {
	return []Field{
		{Name: "createdAt", Kind: KindDateTime, ReadOnly: true},
		{Name: "updatedAt", Kind: KindDateTime, ReadOnly: true},
	}
}

var (
	UserSchema = newSchema("user", append([]Field{
		idField(),
		{Name: "name", Kind: KindString},
		{Name: "email", Kind: KindString, Unique: true},
		{Name: "phone", Kind: KindString, Unique: true},
		{Name: "role", Kind: KindString},
	}, timestampFields()...), map[string]string{
		"company":  "Company",
		"requests": "Requests",
	}, Order{Field: "createdAt", Desc: true})

	RegionSchema = newSchema("region", []Field{
		idField(),
		{Name: "name", Kind: KindString, Unique: true},
		{Name: "nameLocal", Kind: KindString},
	}, map[string]string{
		"companies": "Companies",
	}, Order{Field: "name"})

	CategorySchema = newSchema("category", []Field{
		idField(),
		{Name: "name", Kind: KindString, Unique: true},
		{Name: "nameLocal", Kind: KindString},
		{Name: "icon", Kind: KindString},
		{Name: "keywords", Kind: KindJSON, Nullable: true},
	}, map[string]string{
		"companies": "Companies",
		"products":  "Products",
		"requests":  "Requests",
	}, Order{Field: "name"})

	CompanySchema = newSchema("company", append([]Field{
		idField(),
		{Name: "name", Kind: KindString},
		{Name: "description", Kind: KindString},
		{Name: "address", Kind: KindString},
		{Name: "phone", Kind: KindString},
		{Name: "delivery", Kind: KindBool},
		{Name: "logoUrl", Kind: KindString, Nullable: true},
		{Name: "verified", Kind: KindBool},
		{Name: "categoryId", Kind: KindString},
		{Name: "regionId", Kind: KindString},
		{Name: "ownerId", Kind: KindString, Nullable: true, Unique: true},
	}, timestampFields()...), map[string]string{
		"category": "Category",
		"region":   "Region",
		"owner":    "Owner",
		"products": "Products",
		"offers":   "Offers",
	}, Order{Field: "createdAt", Desc: true})

	ProductSchema = newSchema("product", append([]Field{
		idField(),
		{Name: "name", Kind: KindString},
		{Name: "description", Kind: KindString},
		{Name: "unit", Kind: KindString},
		{Name: "priceFrom", Kind: KindDecimal},
		{Name: "priceUnit", Kind: KindString},
		{Name: "inStock", Kind: KindBool},
		{Name: "companyId", Kind: KindString},
		{Name: "categoryId", Kind: KindString},
	}, timestampFields()...), map[string]string{
		"company":  "Company",
		"category": "Category",
	}, Order{Field: "createdAt", Desc: true})

	RequestSchema = newSchema("request", append([]Field{
		idField(),
		{Name: "query", Kind: KindString},
		{Name: "parsedCategory", Kind: KindString, Nullable: true},
		{Name: "parsedVolume", Kind: KindString, Nullable: true},
		{Name: "parsedCity", Kind: KindString, Nullable: true},
		{Name: "deliveryNeeded", Kind: KindBool},
		{Name: "address", Kind: KindString, Nullable: true},
		{Name: "deadline", Kind: KindDateTime, Nullable: true},
		{Name: "status", Kind: KindString},
		{Name: "userId", Kind: KindString},
		{Name: "categoryId", Kind: KindString},
	}, timestampFields()...), map[string]string{
		"user":     "User",
		"category": "Category",
		"offers":   "Offers",
	}, Order{Field: "createdAt", Desc: true})

	OfferSchema = newSchema("offer", append([]Field{
		idField(),
		{Name: "price", Kind: KindDecimal},
		{Name: "priceUnit", Kind: KindString},
		{Name: "comment", Kind: KindString},
		{Name: "deliveryIncluded", Kind: KindBool},
		{Name: "deliveryPrice", Kind: KindDecimal, Nullable: true},
		{Name: "validUntil", Kind: KindDateTime},
		{Name: "status", Kind: KindString},
		{Name: "requestId", Kind: KindString},
		{Name: "companyId", Kind: KindString},
	}, timestampFields()...), map[string]string{
		"request": "Request",
		"company": "Company",
	}, Order{Field: "createdAt", Desc: true})
)
