package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestCreateAttempt_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)

	txID := "pay_123"
	now := time.Now()
	attempt := &models.PaymentAttempt{
		ID:            uuid.New(),
		UserID:        "user-1",
		OrderID:       "order-1",
		Amount:        50000,
		Currency:      "INR",
		Provider:      "razorpay",
		Status:        models.AttemptStatusSucceeded,
		TransactionID: &txID,
		SucceededAt:   &now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "payment_attempts"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateAttempt(context.Background(), attempt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAttempt_DBErrorRollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "payment_attempts"`)).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	err := repo.CreateAttempt(context.Background(), &models.PaymentAttempt{
		ID:       uuid.New(),
		UserID:   "user-1",
		OrderID:  "order-1",
		Currency: "INR",
		Status:   models.AttemptStatusFailed,
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAttempt_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "user_id", "order_id", "amount", "currency", "status", "error_kind"}).
		AddRow(id, "user-1", "order-1", int64(50000), "INR", models.AttemptStatusFailed, "gateway_cancelled")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_attempts"`)).
		WillReturnRows(rows)

	a, err := repo.GetAttempt(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, int64(50000), a.Amount)
	assert.Equal(t, "gateway_cancelled", a.ErrorKind)
}

func TestGetAttempt_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_attempts"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	a, err := repo.GetAttempt(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, a)
}

func TestOrderCreate_WithItems(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	orderID := uuid.New()
	order := &models.Order{
		ID:     orderID,
		UserID: "user-1",
		Total:  decimal.RequireFromString("499.99"),
		Status: models.OrderStatusPending,
		OrderItems: []models.OrderItem{
			{ID: uuid.New(), OrderID: orderID, ProductID: "p1", Name: "Shoes", Quantity: 1, Price: decimal.RequireFromString("499.99")},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDAndUserID_Preloads(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	orderID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "status"}).
			AddRow(orderID, "user-1", "499.99", models.OrderStatusPending))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "quantity", "price"}).
			AddRow(uuid.New(), orderID, "p1", "Shoes", 1, "499.99"))

	o, err := repo.FindByIDAndUserID(context.Background(), orderID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", o.UserID)
	assert.True(t, decimal.RequireFromString("499.99").Equal(o.Total))
	require.Len(t, o.OrderItems, 1)
	assert.Equal(t, "p1", o.OrderItems[0].ProductID)
}

func TestFindByIDAndUserID_OtherUser(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	o, err := repo.FindByIDAndUserID(context.Background(), uuid.New(), "someone-else")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, o)
}
