package inventory

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"roadassist/internal/models"
)

const (
	selectForUpdate = `SELECT price, stock, low_stock_threshold, available FROM fuel_inventory WHERE provider_id = ? AND fuel_type = ? FOR UPDATE`
	decrementStock  = `UPDATE fuel_inventory SET stock = stock - ? WHERE provider_id = ? AND fuel_type = ? AND stock >= ?`
	incrementStock  = `UPDATE fuel_inventory SET stock = stock + ? WHERE provider_id = ? AND fuel_type = ?`
)

func TestReserveDecrementsUnderRowLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(7), "ai95").
		WillReturnRows(sqlmock.NewRows([]string{"price", "stock", "low_stock_threshold", "available"}).
			AddRow(250.0, 40.0, 20.0, true))
	mock.ExpectExec(regexp.QuoteMeta(decrementStock)).
		WithArgs(25.0, int64(7), "ai95", 25.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	m := NewManager(db)
	res, err := m.Reserve(context.Background(), tx, 7, "ai95", 25)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.UnitPrice != 250.0 {
		t.Errorf("UnitPrice = %v, want 250", res.UnitPrice)
	}
	if res.NewStock != 15.0 {
		t.Errorf("NewStock = %v, want 15", res.NewStock)
	}
	if !res.LowStock {
		t.Error("LowStock = false, want true when new stock falls under the threshold")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReserveInsufficientStockSkipsDecrement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(7), "diesel").
		WillReturnRows(sqlmock.NewRows([]string{"price", "stock", "low_stock_threshold", "available"}).
			AddRow(300.0, 10.0, 20.0, true))
	// No ExpectExec: the decrement must not run when stock is short.
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	m := NewManager(db)
	if _, err := m.Reserve(context.Background(), tx, 7, "diesel", 10.5); !errors.Is(err, models.ErrInsufficientStock) {
		t.Errorf("Reserve err = %v, want ErrInsufficientStock", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReserveRejectsUnavailableAndUnknownLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(7), "gas").
		WillReturnRows(sqlmock.NewRows([]string{"price", "stock", "low_stock_threshold", "available"}).
			AddRow(200.0, 100.0, 20.0, false))
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs(int64(7), "ai98").
		WillReturnRows(sqlmock.NewRows([]string{"price", "stock", "low_stock_threshold", "available"}))
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	m := NewManager(db)

	if _, err := m.Reserve(context.Background(), tx, 7, "gas", 10); !errors.Is(err, models.ErrFuelUnavailable) {
		t.Errorf("disabled line: err = %v, want ErrFuelUnavailable", err)
	}
	if _, err := m.Reserve(context.Background(), tx, 7, "ai98", 10); !errors.Is(err, models.ErrFuelUnavailable) {
		t.Errorf("unknown line: err = %v, want ErrFuelUnavailable", err)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRestockIncrementsStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(incrementStock)).
		WithArgs(25.0, int64(7), "ai95").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	m := NewManager(db)
	if err := m.Restock(context.Background(), tx, 7, "ai95", 25); err != nil {
		t.Fatalf("Restock: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
