package websites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebsiteNotFoundError represents an error when a website is not registered
type WebsiteNotFoundError struct {
	ID string
}

func (e *WebsiteNotFoundError) Error() string {
	return fmt.Sprintf("website not found: %s", e.ID)
}

// NewWebsiteNotFoundError creates a new WebsiteNotFoundError
func NewWebsiteNotFoundError(id string) *WebsiteNotFoundError {
	return &WebsiteNotFoundError{ID: id}
}

// Website represents a registered website. Its ID is the public value embedded in the tracking snippet.
type Website struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Domain    string    `gorm:"uniqueIndex;not null" json:"domain"` // Base domain, e.g., "example.com"
	CreatedAt time.Time `json:"created_at"`
}

// Registry looks up and registers websites in the database.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a registry backed by db.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Exists reports whether id belongs to a registered website.
func (r *Registry) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&Website{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up website %s: %w", id, err)
	}
	return count > 0, nil
}

// Get returns the website with the given id or a WebsiteNotFoundError.
func (r *Registry) Get(ctx context.Context, id string) (*Website, error) {
	var website Website
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&website).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewWebsiteNotFoundError(id)
		}
		return nil, fmt.Errorf("unexpected error querying website: %w", err)
	}
	return &website, nil
}

// GetByDomain returns the website registered for the base domain of host.
func (r *Registry) GetByDomain(ctx context.Context, host string) (*Website, error) {
	domain := BaseDomainForHost(host)
	var website Website
	if err := r.db.WithContext(ctx).Where("domain = ?", domain).First(&website).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewWebsiteNotFoundError(domain)
		}
		return nil, fmt.Errorf("unexpected error querying website: %w", err)
	}
	return &website, nil
}

// List returns all registered websites ordered by domain.
func (r *Registry) List(ctx context.Context) ([]Website, error) {
	var websites []Website
	if err := r.db.WithContext(ctx).Order("domain ASC").Find(&websites).Error; err != nil {
		return nil, fmt.Errorf("failed to get websites: %w", err)
	}
	return websites, nil
}

// Create registers a website for the base domain of host and assigns it a fresh id.
func (r *Registry) Create(ctx context.Context, host string) (*Website, error) {
	domain := BaseDomainForHost(strings.TrimSpace(host))
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}

	website := &Website{
		ID:        uuid.NewString(),
		Domain:    domain,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(website).Error; err != nil {
		return nil, fmt.Errorf("failed to create website %s: %w", domain, err)
	}
	return website, nil
}

// BaseDomainForHost returns the canonical base domain for a hostname, preserving localhost
// semantics while collapsing known subdomain patterns (e.g. foo.example.com -> example.com).
func BaseDomainForHost(host string) string {
	return stripSubdomains(host)
}

// ccTLDs that need three labels to form a registrable domain.
var ccTLDPatterns = map[string]bool{
	"co.uk":  true,
	"co.jp":  true,
	"co.za":  true,
	"co.nz":  true,
	"co.in":  true,
	"com.au": true,
	"com.br": true,
	"org.uk": true,
	"gov.uk": true,
	"edu.au": true,
	"ac.uk":  true,
	"ne.jp":  true,
	"or.jp":  true,
}

func stripSubdomains(host string) string {
	parts := strings.Split(strings.ToLower(host), ".")
	if len(parts) < 2 {
		return strings.ToLower(host)
	}

	lastPart := parts[len(parts)-1]
	if lastPart == "localhost" {
		return "localhost"
	}

	secondLast := parts[len(parts)-2]
	if len(parts) > 2 && ccTLDPatterns[secondLast+"."+lastPart] {
		return parts[len(parts)-3] + "." + secondLast + "." + lastPart
	}

	return secondLast + "." + lastPart
}
