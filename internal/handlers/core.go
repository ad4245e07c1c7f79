package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"vellum/internal/appinfo"
	"vellum/internal/database"
)

// UpsertUserFromIdentity is the boundary to the external OAuth layer: it is
// called with an already-verified identity and makes sure a matching user
// row exists. New users start as viewers; roles are only ever raised by an
// admin, never by a provider claim.
func UpsertUserFromIdentity(ctx context.Context, provider, subject, email, displayName string) (*database.User, error) {
	if provider == "" || subject == "" {
		return nil, fmt.Errorf("identity requires provider and subject")
	}

	user := database.User{
		ID:          uuid.NewString(),
		Provider:    provider,
		Subject:     subject,
		Email:       email,
		DisplayName: displayName,
		Role:        database.RoleViewer,
	}

	err := database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "subject"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name"}),
	}).Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user %s/%s: %w", provider, subject, err)
	}

	// Re-read: on conflict the insert struct keeps its generated ID and
	// default role, not the stored ones.
	var stored database.User
	if err := database.DB.WithContext(ctx).First(&stored, "provider = ? AND subject = ?", provider, subject).Error; err != nil {
		return nil, fmt.Errorf("load user %s/%s: %w", provider, subject, err)
	}
	return &stored, nil
}

// CoreDeleteContent performs a safe, transactional deletion of a post or
// page, then drops its rendered bytes from the cache.
func CoreDeleteContent(ctx context.Context, kind, id string) error {
	tx := database.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer tx.Rollback()

	var published bool
	var isPost bool

	switch kind {
	case "post":
		isPost = true
		var post database.Post
		if err := tx.Select("published").First(&post, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to fetch post: %w", err)
		}
		published = post.Published

		if err := tx.Where("id = ?", id).Delete(&database.Post{}).Error; err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
	case "page":
		var page database.Page
		if err := tx.Select("published").First(&page, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		published = page.Published

		if err := tx.Where("id = ?", id).Delete(&database.Page{}).Error; err != nil {
			return fmt.Errorf("failed to delete page: %w", err)
		}
	default:
		return fmt.Errorf("unknown content kind %q", kind)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	if published {
		appinfo.ContentUnpublished(isPost)
	}

	// Rendered URLs for the row are unknown here (host prefixes vary), so
	// purge wholesale; deletions are rare on the admin path.
	if globalCache != nil {
		globalCache.Purge()
	}

	return nil
}
