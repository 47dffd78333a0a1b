package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"

	"github.com/google/uuid"
)

// LogoUploader stores a logo image and returns its public URL.
type LogoUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// CompanyInput is the payload for creating a company.
type CompanyInput struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"max=5000"`
	Address     string `json:"address" validate:"max=500"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
	Delivery    bool   `json:"delivery"`
	CategoryID  string `json:"categoryId" validate:"required,uuid"`
	RegionID    string `json:"regionId" validate:"required,uuid"`
}

// Fields a company owner may change. Verification is reserved for admins.
var companyOwnerFields = map[string]bool{
	"name": true, "description": true, "address": true, "phone": true,
	"delivery": true, "categoryId": true, "regionId": true,
}

var logoContentTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// CompanyService handles business logic related to supplier companies.
type CompanyService struct {
	store    *repositories.Store
	uploader LogoUploader
}

// NewCompanyService creates a new CompanyService. uploader may be nil when
// logo storage is not configured.
func NewCompanyService(store *repositories.Store, uploader LogoUploader) *CompanyService {
	return &CompanyService{store: store, uploader: uploader}
}

// CreateCompany registers a company owned by the acting supplier. Admins may
// create companies without an owner.
func (s *CompanyService) CreateCompany(ctx context.Context, actor Actor, in CompanyInput) (*models.Company, error) {
	company := &models.Company{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Address:     in.Address,
		Phone:       in.Phone,
		Delivery:    in.Delivery,
		CategoryID:  in.CategoryID,
		RegionID:    in.RegionID,
	}

	switch actor.Role {
	case models.RoleSupplier:
		if _, err := s.store.Companies.GetByOwnerID(ctx, actor.UserID); err == nil {
			return nil, fmt.Errorf("%w: user already owns a company", ErrConflict)
		} else if !repositories.IsNotFound(err) {
			return nil, err
		}
		owner := actor.UserID
		company.OwnerID = &owner
	case models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: only suppliers can register a company", ErrForbidden)
	}

	if err := s.checkReferences(ctx, in.CategoryID, in.RegionID); err != nil {
		return nil, err
	}
	if err := s.store.Companies.Create(ctx, company); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user already owns a company", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

func (s *CompanyService) checkReferences(ctx context.Context, categoryID, regionID string) error {
	if categoryID != "" {
		if _, err := s.store.Categories.FindUnique(ctx, "id", categoryID); err != nil {
			if repositories.IsNotFound(err) {
				return fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, categoryID)
			}
			return err
		}
	}
	if regionID != "" {
		if _, err := s.store.Regions.FindUnique(ctx, "id", regionID); err != nil {
			if repositories.IsNotFound(err) {
				return fmt.Errorf("%w: region %s does not exist", ErrInvalidInput, regionID)
			}
			return err
		}
	}
	return nil
}

// Relations only the owner of a company and admins may load.
var privateCompanyRelations = []string{"owner", "offers"}

// GetCompany retrieves a company with the requested relations loaded. Owner
// and offers are reserved to the owner and admins.
func (s *CompanyService) GetCompany(ctx context.Context, actor Actor, id string, include []string) (*models.Company, error) {
	company, err := s.store.Companies.FindFirst(ctx, repositories.Query{
		Where:   repositories.WhereAll(repositories.Eq("id", id)),
		Include: include,
	})
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || (company.OwnerID != nil && *company.OwnerID == actor.UserID) {
		return company, nil
	}
	if err := guardIncludes(include, privateCompanyRelations...); err != nil {
		return nil, err
	}
	return company, nil
}

// ListCompanies returns the companies matching q. Only admins may include
// owners and offers across companies.
func (s *CompanyService) ListCompanies(ctx context.Context, actor Actor, q repositories.Query) ([]models.Company, error) {
	if !actor.IsAdmin() {
		if err := guardIncludes(q.Include, privateCompanyRelations...); err != nil {
			return nil, err
		}
	}
	return s.store.Companies.FindMany(ctx, q)
}

// CountCompanies returns how many companies match where.
func (s *CompanyService) CountCompanies(ctx context.Context, where repositories.Where) (int64, error) {
	return s.store.Companies.Count(ctx, where)
}

// UpdateCompany changes a company's details on behalf of its owner or an admin.
func (s *CompanyService) UpdateCompany(ctx context.Context, actor Actor, id string, data map[string]any) (*models.Company, error) {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		for field := range data {
			if !companyOwnerFields[field] {
				return nil, fmt.Errorf("%w: field %s cannot be changed by the owner", ErrForbidden, field)
			}
		}
	}
	categoryID, _ := data["categoryId"].(string)
	regionID, _ := data["regionId"].(string)
	if err := s.checkReferences(ctx, categoryID, regionID); err != nil {
		return nil, err
	}
	return s.store.Companies.Update(ctx, id, data)
}

// VerifyCompany sets the verified flag. Admin only.
func (s *CompanyService) VerifyCompany(ctx context.Context, actor Actor, id string, verified bool) (*models.Company, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Companies.Update(ctx, id, map[string]any{"verified": verified})
}

// DeleteCompany removes a company together with its catalog and offers.
func (s *CompanyService) DeleteCompany(ctx context.Context, actor Actor, id string) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		byCompany := repositories.WhereAll(repositories.Eq("companyId", id))
		if _, err := tx.Offers.DeleteMany(ctx, byCompany); err != nil {
			return fmt.Errorf("failed to delete company offers: %w", err)
		}
		if _, err := tx.Products.DeleteMany(ctx, byCompany); err != nil {
			return fmt.Errorf("failed to delete company products: %w", err)
		}
		_, err := tx.Companies.Delete(ctx, id)
		return err
	})
}

// UploadLogo stores a logo image and points the company's logoUrl at it.
func (s *CompanyService) UploadLogo(ctx context.Context, actor Actor, id, filename, contentType string, body io.Reader) (*models.Company, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: logo storage is not configured", ErrInvalidState)
	}
	ext, ok := logoContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported logo content type %s", ErrInvalidInput, contentType)
	}
	if fileExt := strings.ToLower(path.Ext(filename)); fileExt != "" && fileExt != ext && !(ext == ".jpg" && fileExt == ".jpeg") {
		return nil, fmt.Errorf("%w: file extension %s does not match %s", ErrInvalidInput, fileExt, contentType)
	}
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("logos/%s/%s%s", id, uuid.New().String(), ext)
	url, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to store logo: %w", err)
	}
	return s.store.Companies.Update(ctx, id, map[string]any{"logoUrl": url})
}

// authorize loads the company and checks the actor owns it or is an admin.
func (s *CompanyService) authorize(ctx context.Context, actor Actor, id string) (*models.Company, error) {
	company, err := s.store.Companies.FindUnique(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return company, nil
	}
	if company.OwnerID == nil || *company.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: company %s is not owned by the user", ErrForbidden, id)
	}
	return company, nil
}

// companyOf returns the company owned by the actor.
func companyOf(ctx context.Context, store *repositories.Store, actor Actor) (*models.Company, error) {
	company, err := store.Companies.GetByOwnerID(ctx, actor.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, fmt.Errorf("%w: user does not own a company", ErrForbidden)
		}
		return nil, err
	}
	return company, nil
}
