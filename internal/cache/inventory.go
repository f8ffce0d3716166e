package cache

import (
	"context"
	"fmt"
	"time"
)

// Key prefixes. Session-token validity is deliberately absent: revocation
// must be visible to the very next request, so token lookups always hit
// the database.
const (
	ArticleKeyPrefix     = "article:%d"
	ArticleListKeyPrefix = "articles:recent"
	CategoryListKey      = "categories"
	UserKeyPrefix        = "user:%d"
)

const (
	ArticleTTL  = 10 * time.Minute
	ListTTL     = 1 * time.Minute
	CategoryTTL = 30 * time.Minute
	UserTTL     = 5 * time.Minute
)

func ArticleKey(articleID uint) string {
	return fmt.Sprintf(ArticleKeyPrefix, articleID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateArticle drops both the article entry and the recent list;
// reaction toggles change counters that appear in both.
func InvalidateArticle(ctx context.Context, articleID uint) {
	Invalidate(ctx, ArticleKey(articleID))
	Invalidate(ctx, ArticleListKeyPrefix)
}

func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoryListKey)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
