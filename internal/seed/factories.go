// Package seed creates demo data for development databases. It is never
// wired into the production bootstrap path.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// pastTime spreads created_at values over the last maxDays days so seeded
// listings look lived-in.
func (f *Factory) pastTime(maxDays int) time.Time {
	back := time.Duration(f.rng.Intn(maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// CreateUser persists a user with the given password in clear text input
// form; the stored value is bcrypt-hashed.
func (f *Factory) CreateUser(password string, overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", f.rng.Intn(10000)),
		Email:    gofakeit.Email(),
		Password: string(hashed),
		Active:   true,
	}
	for _, fn := range overrides {
		fn(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateCategory persists a category with a slug derived from its name.
func (f *Factory) CreateCategory(name string) (*models.Category, error) {
	category := &models.Category{
		Name:        name,
		Slug:        strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		Description: gofakeit.Sentence(8),
	}
	if err := f.db.Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// CreateArticle persists an article owned by the user.
func (f *Factory) CreateArticle(user *models.User, overrides ...func(*models.Article)) (*models.Article, error) {
	article := &models.Article{
		Title:     gofakeit.Sentence(6),
		Content:   gofakeit.Paragraph(2, 4, 8, "\n\n"),
		UserID:    user.ID,
		Status:    models.ArticleStatusPublished,
		CreatedAt: f.pastTime(90),
	}
	for _, fn := range overrides {
		fn(article)
	}
	if err := f.db.Create(article).Error; err != nil {
		return nil, err
	}
	return article, nil
}

// CreateComment persists an approved comment on the article.
func (f *Factory) CreateComment(user *models.User, article *models.Article, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content:   gofakeit.Sentence(12),
		UserID:    user.ID,
		ArticleID: article.ID,
		Status:    models.CommentStatusApproved,
		CreatedAt: f.pastTime(30),
	}
	for _, fn := range overrides {
		fn(comment)
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// LikeArticle records a like and bumps the counter, mirroring what the
// toggle path does at runtime.
func (f *Factory) LikeArticle(user *models.User, article *models.Article) error {
	reaction := &models.Reaction{
		UserID:    user.ID,
		ArticleID: &article.ID,
		Kind:      models.ReactionLike,
	}
	if err := f.db.Create(reaction).Error; err != nil {
		return err
	}
	return f.db.Model(article).
		Update("like_count", gorm.Expr("like_count + ?", 1)).Error
}

// ReactToComment records a reaction of the given kind on the comment and
// bumps the matching counter.
func (f *Factory) ReactToComment(user *models.User, comment *models.Comment, kind string) error {
	reaction := &models.Reaction{
		UserID:    user.ID,
		CommentID: &comment.ID,
		Kind:      kind,
	}
	if err := f.db.Create(reaction).Error; err != nil {
		return err
	}
	column := "like_count"
	if kind == models.ReactionDislike {
		column = "dislike_count"
	}
	return f.db.Model(comment).
		Update(column, gorm.Expr(column+" + ?", 1)).Error
}
