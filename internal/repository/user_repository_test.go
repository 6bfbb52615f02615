package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-api/internal/model"
)

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

var userCols = []string{"id", "name", "email", "password_hash", "role", "store_id", "refresh_token", "created_at", "updated_at"}

func ptr[T any](v T) *T { return &v }

func TestCreate_NormalizesEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role, store_id) VALUES (?,?,?,?,?)")).
		WithArgs("Ann", "a@x.com", "hash", "store_manager", int64(1)).
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := repo.Create(context.Background(), &model.User{
		Name: "Ann", Email: "  A@X.com ", PasswordHash: "hash", Role: model.RoleStoreManager, StoreID: ptr(uint64(1)),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_AdminWithoutStore(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("Root", "root@x.com", "hash", "admin", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := repo.Create(context.Background(), &model.User{Name: "Root", Email: "root@x.com", PasswordHash: "hash", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com' for key 'users.uq_users_email'"})

	_, err := repo.Create(context.Background(), &model.User{Name: "Ann", Email: "a@x.com", PasswordHash: "h", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCreate_OtherError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	boom := errors.New("boom")

	mock.ExpectExec("INSERT INTO users").WillReturnError(boom)

	_, err := repo.Create(context.Background(), &model.User{Name: "Ann", Email: "a@x.com", PasswordHash: "h", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrEmailExists)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE email=? LIMIT 1")).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "Ann", "a@x.com", "hash", "staff", int64(3), "tok", now, now))

	u, err := repo.GetByEmail(context.Background(), " A@x.COM")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, model.RoleStaff, u.Role)
	require.NotNil(t, u.StoreID)
	assert.Equal(t, uint64(3), *u.StoreID)
	require.NotNil(t, u.RefreshToken)
	assert.Equal(t, "tok", *u.RefreshToken)
}

func TestGetByID_NullColumns(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users WHERE id=\\?").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "Root", "root@x.com", "hash", "admin", nil, nil, now, now))

	u, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, u.StoreID)
	assert.Nil(t, u.RefreshToken)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("FROM users WHERE id=\\?").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateRefreshToken_SetAndClear(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := regexp.QuoteMeta("UPDATE users SET refresh_token=? WHERE id=?")

	mock.ExpectExec(q).WithArgs("tok", uint64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(nil, uint64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateRefreshToken(context.Background(), 1, ptr("tok")))
	require.NoError(t, repo.UpdateRefreshToken(context.Background(), 1, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRefreshToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := regexp.QuoteMeta("UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?")

	mock.ExpectExec(q).WithArgs("new", uint64(1), "old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("newer", uint64(1), "old").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SwapRefreshToken(context.Background(), 1, "old", "new")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SwapRefreshToken(context.Background(), 1, "old", "newer")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFields(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name=?,email=?,password_hash=?,refresh_token=NULL WHERE id=?")).
		WithArgs("Bea", "b@x.com", "h2", uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), 4, model.UserUpdate{
		Name: ptr("Bea"), Email: ptr(" B@x.com"), PasswordHash: ptr("h2"), ClearRefreshToken: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFields_EmptyIsNoop(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	require.NoError(t, repo.UpdateFields(context.Background(), 4, model.UserUpdate{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFields_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("UPDATE users SET email").WillReturnError(&mysql.MySQLError{Number: 1062})

	err := repo.UpdateFields(context.Background(), 4, model.UserUpdate{Email: ptr("taken@x.com")})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestListByStore(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE store_id=? ORDER BY created_at DESC, id DESC")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(2, "B", "b@x.com", "h", "staff", int64(3), nil, now, now).
			AddRow(1, "A", "a@x.com", "h", "store_manager", int64(3), "t", now, now))

	users, err := repo.ListByStore(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b@x.com", users[0].Email)
	assert.Equal(t, model.RoleStoreManager, users[1].Role)
}

func TestList_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("FROM users ORDER BY").WillReturnRows(sqlmock.NewRows(userCols))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}
