package database

import (
	"time"
)

// Setting is one row of the site-wide key/value store. Global keys are bare
// ("site_name"); per-subdomain overrides use the "site:<subdomain>:<key>"
// form. Value is nullable; NULL and "" both mean "fall back to the default".
type Setting struct {
	Key   string  `gorm:"primaryKey;type:text" json:"key"`
	Value *string `gorm:"type:text" json:"value"`
}

// User is an account provisioned by the external OAuth layer. The handshake
// itself lives outside this app; rows are upserted from verified identities.
type User struct {
	ID       string `gorm:"primaryKey;type:text" json:"id"` // uuid
	Provider string `gorm:"index:idx_users_identity,unique;type:text" json:"provider"`
	Subject  string `gorm:"index:idx_users_identity,unique;type:text" json:"subject"`

	Email       string `gorm:"type:text" json:"email"`
	DisplayName string `gorm:"type:text" json:"display_name"`
	Role        string `gorm:"type:text" json:"role"` // "admin", "editor", "viewer"

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Roles, strongest first.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

type Post struct {
	ID   string `gorm:"primaryKey;type:text" json:"id"` // uuid
	Slug string `gorm:"uniqueIndex;type:text" json:"slug"`

	Title string `gorm:"type:text" json:"title"`
	Body  string `gorm:"type:text" json:"body"`

	// Template: optional explicit template name; empty means resolve by slug
	Template  string `gorm:"type:text" json:"template"`
	Published bool   `json:"published"`

	AuthorID string `gorm:"index;type:text" json:"author_id"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Page struct {
	ID   string `gorm:"primaryKey;type:text" json:"id"` // uuid
	Slug string `gorm:"uniqueIndex;type:text" json:"slug"`

	Title string `gorm:"type:text" json:"title"`
	Body  string `gorm:"type:text" json:"body"`

	Template  string `gorm:"type:text" json:"template"`
	Published bool   `json:"published"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}
