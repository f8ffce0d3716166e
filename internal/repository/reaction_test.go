package repository

import (
	"context"
	"regexp"
	"testing"

	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestReactionRepository_FindForArticle(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "user_id", "article_id", "kind"}).
		AddRow(5, 1, 2, "like")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reactions" WHERE user_id = $1 AND article_id = $2 ORDER BY "reactions"."id" LIMIT $3`)).
		WithArgs(1, 2, 1).
		WillReturnRows(rows)

	reaction, err := repo.FindForArticle(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, reaction)
	assert.Equal(t, uint(5), reaction.ID)
	assert.Equal(t, models.ReactionLike, reaction.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_FindForArticle_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reactions" WHERE user_id = $1 AND article_id = $2 ORDER BY "reactions"."id" LIMIT $3`)).
		WithArgs(1, 99, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	reaction, err := repo.FindForArticle(context.Background(), 1, 99)
	assert.NoError(t, err)
	assert.Nil(t, reaction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_DeleteMatching(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions" WHERE id = $1 AND kind = $2`)).
		WithArgs(5, "like").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.DeleteMatching(context.Background(), 5, "like")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_DeleteMatching_KindRaced(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	// A concurrent toggle changed the kind first; the guarded delete
	// touches nothing.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions" WHERE id = $1 AND kind = $2`)).
		WithArgs(5, "like").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rows, err := repo.DeleteMatching(context.Background(), 5, "like")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_UpdateKind(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reactions" SET "kind"=$1 WHERE id = $2 AND kind = $3`)).
		WithArgs("dislike", 5, "like").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.UpdateKind(context.Background(), 5, "like", "dislike")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_AddLikeCount_RelativeIncrement(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewArticleRepository(db)

	// The counter moves by a relative SQL expression, never by a value
	// computed in Go.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "articles" SET "like_count"=like_count + $1,"updated_at"=$2 WHERE id = $3 AND "articles"."deleted_at" IS NULL`)).
		WithArgs(int64(1), sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AddLikeCount(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_AddLikeCount_GuardsUnderflow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewArticleRepository(db)

	// Negative deltas carry a floor predicate so the counter cannot go
	// below zero even if the stored value drifted.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "articles" SET "like_count"=like_count + $1,"updated_at"=$2 WHERE (id = $3 AND like_count >= $4) AND "articles"."deleted_at" IS NULL`)).
		WithArgs(int64(-1), sqlmock.AnyArg(), 2, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AddLikeCount(context.Background(), 2, -1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
