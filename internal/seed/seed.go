package seed

import (
	"log"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Options controls how much demo data Run creates.
type Options struct {
	Users    int
	Articles int
	// CommentsPerArticle is an upper bound; each article gets a random
	// number of comments up to it.
	CommentsPerArticle int
	AdminPassword      string
}

// DefaultOptions returns a small but browsable dataset.
func DefaultOptions() Options {
	return Options{
		Users:              10,
		Articles:           30,
		CommentsPerArticle: 5,
		AdminPassword:      "AdminPassw0rd!23",
	}
}

// Run populates the database with demo users, categories, articles,
// comments and reactions. It is idempotent only in the sense that
// running it twice doubles the data; use it on fresh databases.
func Run(db *gorm.DB, opts Options) error {
	f := NewFactory(db)

	admin, err := f.CreateUser(opts.AdminPassword, func(u *models.User) {
		u.Username = "admin"
		u.Email = "admin@inkwell.local"
		u.IsAdmin = true
	})
	if err != nil {
		return err
	}
	log.Printf("seeded admin user %q", admin.Username)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := f.CreateUser("UserPassw0rd!23")
		if err != nil {
			return err
		}
		users = append(users, user)
	}

	categoryNames := []string{"Engineering", "Design", "Product", "Culture", "Announcements"}
	categories := make([]*models.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		category, err := f.CreateCategory(name)
		if err != nil {
			return err
		}
		categories = append(categories, category)
	}

	for i := 0; i < opts.Articles; i++ {
		author := users[f.rng.Intn(len(users))]
		category := categories[f.rng.Intn(len(categories))]

		article, err := f.CreateArticle(author, func(a *models.Article) {
			a.CategoryID = &category.ID
			// Roughly one in five stays a draft.
			if f.rng.Intn(5) == 0 {
				a.Status = models.ArticleStatusDraft
			}
		})
		if err != nil {
			return err
		}
		if !article.Published() {
			continue
		}

		for j := 0; j < f.rng.Intn(opts.CommentsPerArticle+1); j++ {
			commenter := users[f.rng.Intn(len(users))]
			comment, err := f.CreateComment(commenter, article)
			if err != nil {
				return err
			}
			if f.rng.Intn(2) == 0 {
				reactor := users[f.rng.Intn(len(users))]
				if reactor.ID == commenter.ID {
					continue
				}
				kind := models.ReactionLike
				if f.rng.Intn(4) == 0 {
					kind = models.ReactionDislike
				}
				if err := f.ReactToComment(reactor, comment, kind); err != nil {
					return err
				}
			}
		}

		// A random subset of users likes the article. Each (user,
		// article) pair appears at most once by construction.
		for _, user := range users {
			if user.ID == author.ID || f.rng.Intn(3) != 0 {
				continue
			}
			if err := f.LikeArticle(user, article); err != nil {
				return err
			}
		}
	}

	log.Printf("seeded %d users, %d categories, %d articles", len(users)+1, len(categories), opts.Articles)
	return nil
}
