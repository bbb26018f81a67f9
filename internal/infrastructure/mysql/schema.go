package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists the storefront tables in creation order.
var Tables = []string{"DeliverySettings", "Product", "Orders", "OrderItems"}

var schema = map[string]string{
	"DeliverySettings": `
	CREATE TABLE IF NOT EXISTS DeliverySettings (
		tenantId VARCHAR(64) NOT NULL PRIMARY KEY,
		insideRegionCharge DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		outsideRegionCharge DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		freeDeliveryMinimum DECIMAL(12,2) NULL,
		expressCharge DECIMAL(12,2) NULL,
		vatRate DECIMAL(5,2) NOT NULL DEFAULT 0.00,
		insideDivision VARCHAR(100) NOT NULL DEFAULT 'Dhaka',
		trackStock TINYINT(1) NOT NULL DEFAULT 0,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	"Product": `
	CREATE TABLE IF NOT EXISTS Product (
		id VARCHAR(64) NOT NULL,
		tenantId VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		stock INT NULL,
		image VARCHAR(512) NOT NULL DEFAULT '',
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		isDeleted TINYINT(1) NOT NULL DEFAULT 0,
		trackStock TINYINT(1) NOT NULL DEFAULT 0,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (tenantId, id)
	)`,
	"Orders": `
	CREATE TABLE IF NOT EXISTS Orders (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		tenantId VARCHAR(64) NOT NULL,
		customerName VARCHAR(150) NOT NULL,
		customerPhone VARCHAR(30) NOT NULL,
		customerAddress VARCHAR(255) NOT NULL,
		customerEmail VARCHAR(150) NULL,
		customerDivision VARCHAR(100) NOT NULL DEFAULT '',
		customerDistrict VARCHAR(100) NOT NULL DEFAULT '',
		subTotal DECIMAL(12,2) NOT NULL,
		vat DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		deliveryCharge DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		total DECIMAL(12,2) NOT NULL,
		advancePaid DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		remaining DECIMAL(12,2) NOT NULL,
		expressDelivery TINYINT(1) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		paymentMethod VARCHAR(30) NOT NULL,
		note TEXT NULL,
		version INT NOT NULL DEFAULT 1,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_tenant_created (tenantId, createdAt)
	)`,
	"OrderItems": `
	CREATE TABLE IF NOT EXISTS OrderItems (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		productId VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		quantity INT NOT NULL DEFAULT 1,
		image VARCHAR(512) NOT NULL DEFAULT '',
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId)
	)`,
}

// EnsureSchema creates any missing storefront tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range Tables {
		if _, err := db.ExecContext(ctx, schema[table]); err != nil {
			return fmt.Errorf("creating table %s: %w", table, err)
		}
	}
	return nil
}
