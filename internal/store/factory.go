package store

import (
	"fmt"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/modules/payments"
)

type FactoryResult struct {
	Driver   string
	Orders   orders.Store
	Payments payments.Store
}

// FromEnv selects the order/payment ledger backend. The default keeps
// everything in process memory behind per-key locks; STORE_DRIVER=mysql
// swaps in the gorm-backed tables with row-lock serialization.
func FromEnv() (FactoryResult, error) {
	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = "memory"
	}

	switch driver {
	case "memory":
		return FactoryResult{
			Driver:   "memory",
			Orders:   orders.NewMemoryStore(),
			Payments: payments.NewMemoryStore(),
		}, nil

	case "mysql":
		dsn := os.Getenv("DB_DSN")
		if dsn == "" {
			return FactoryResult{}, fmt.Errorf("mysql store config missing: DB_DSN required")
		}
		db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err != nil {
			return FactoryResult{}, fmt.Errorf("connect mysql: %w", err)
		}
		orderStore, err := orders.NewGormStore(db)
		if err != nil {
			return FactoryResult{}, err
		}
		paymentStore, err := payments.NewGormStore(db)
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Driver: "mysql", Orders: orderStore, Payments: paymentStore}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown STORE_DRIVER: %s", driver)
	}
}
