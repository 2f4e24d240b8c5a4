package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"bomtrack/internal/models"
)

// Cache TTL for derived on-hand quantities. The ledger stays the source of
// truth; every write invalidates the affected keys.
const quantityCacheTTL = 2 * time.Minute

const cacheKeyPrefix = "bomtrack:ledger:"

// LedgerRepository owns the append-only transaction log and everything
// derived from it. Lines are never updated or deleted; corrections go through
// compensating adjustment transactions.
type LedgerRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewLedgerRepository(db *gorm.DB, redisClient *redis.Client) *LedgerRepository {
	return &LedgerRepository{db: db, redis: redisClient}
}

// DB exposes the underlying handle so the transaction engine can wrap
// multi-repository work in a single database transaction.
func (r *LedgerRepository) DB() *gorm.DB {
	return r.db
}

// RedisHealth returns the health status of the Redis connection.
func (r *LedgerRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}

func componentQuantityKey(tenantID string, componentID uuid.UUID, locationID *uuid.UUID) string {
	if locationID != nil {
		return fmt.Sprintf("%sqty:%s:%s:%s", cacheKeyPrefix, tenantID, componentID, locationID)
	}
	return fmt.Sprintf("%sqty:%s:%s:all", cacheKeyPrefix, tenantID, componentID)
}

func (r *LedgerRepository) invalidateQuantityCaches(ctx context.Context, tenantID string) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, fmt.Sprintf("%sqty:%s:*", cacheKeyPrefix, tenantID), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = r.redis.Del(ctx, keys...).Err()
	}
}

// CurrentQuantity derives the on-hand quantity for a component by summing all
// its ledger lines, optionally filtered to one location. A short-TTL cache
// fronts the aggregate.
func (r *LedgerRepository) CurrentQuantity(tenantID string, componentID uuid.UUID, locationID *uuid.UUID) (int, error) {
	ctx := context.Background()
	cacheKey := componentQuantityKey(tenantID, componentID, locationID)

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			if qty, convErr := strconv.Atoi(val); convErr == nil {
				return qty, nil
			}
		}
	}

	qty, err := r.currentQuantityTx(r.db, tenantID, componentID, locationID)
	if err != nil {
		return 0, err
	}

	if r.redis != nil {
		r.redis.Set(ctx, cacheKey, strconv.Itoa(qty), quantityCacheTTL)
	}

	return qty, nil
}

// CurrentQuantityTx is CurrentQuantity inside an existing database
// transaction, bypassing the cache. Build validation uses this so the
// read-then-write window stays within one transaction boundary.
func (r *LedgerRepository) CurrentQuantityTx(tx *gorm.DB, tenantID string, componentID uuid.UUID, locationID *uuid.UUID) (int, error) {
	return r.currentQuantityTx(tx, tenantID, componentID, locationID)
}

func (r *LedgerRepository) currentQuantityTx(tx *gorm.DB, tenantID string, componentID uuid.UUID, locationID *uuid.UUID) (int, error) {
	query := tx.Model(&models.TransactionLine{}).
		Where("tenant_id = ? AND component_id = ?", tenantID, componentID)
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}

	var total int64
	row := query.Select("COALESCE(SUM(quantity_change), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return int(total), nil
}

// CurrentSKUQuantity derives the finished-goods on-hand for a SKU.
func (r *LedgerRepository) CurrentSKUQuantity(tenantID string, skuID uuid.UUID, locationID *uuid.UUID) (int, error) {
	return r.currentSKUQuantityTx(r.db, tenantID, skuID, locationID)
}

// CurrentSKUQuantityTx is CurrentSKUQuantity inside an existing database
// transaction. Outbound validation uses this so the read-then-write window
// stays within one transaction boundary.
func (r *LedgerRepository) CurrentSKUQuantityTx(tx *gorm.DB, tenantID string, skuID uuid.UUID, locationID *uuid.UUID) (int, error) {
	return r.currentSKUQuantityTx(tx, tenantID, skuID, locationID)
}

func (r *LedgerRepository) currentSKUQuantityTx(tx *gorm.DB, tenantID string, skuID uuid.UUID, locationID *uuid.UUID) (int, error) {
	query := tx.Model(&models.TransactionLine{}).
		Where("tenant_id = ? AND sku_id = ?", tenantID, skuID)
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}

	var total int64
	row := query.Select("COALESCE(SUM(quantity_change), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return int(total), nil
}

// ConsumptionSince returns the total quantity consumed (sum of negative
// changes, as a positive number) for a component since the given time,
// excluding the given transaction types.
func (r *LedgerRepository) ConsumptionSince(tenantID string, componentID uuid.UUID, since time.Time, excludedTypes []models.TransactionType) (int, error) {
	query := r.db.Model(&models.TransactionLine{}).
		Joins("JOIN transactions ON transactions.id = transaction_lines.transaction_id").
		Where("transaction_lines.tenant_id = ? AND transaction_lines.component_id = ?", tenantID, componentID).
		Where("transaction_lines.quantity_change < 0").
		Where("transaction_lines.created_at >= ?", since)

	if len(excludedTypes) > 0 {
		query = query.Where("transactions.type NOT IN ?", excludedTypes)
	}

	var total int64
	row := query.Select("COALESCE(SUM(-transaction_lines.quantity_change), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return int(total), nil
}

// CreateTransactionTx appends a transaction and its lines inside an existing
// database transaction. Lot balances are maintained alongside so they stay
// rebuildable from the ledger.
func (r *LedgerRepository) CreateTransactionTx(tx *gorm.DB, tenantID string, transaction *models.Transaction) error {
	transaction.TenantID = tenantID
	transaction.CreatedAt = time.Now()

	for i := range transaction.Lines {
		transaction.Lines[i].TenantID = tenantID
		transaction.Lines[i].CreatedAt = transaction.CreatedAt
	}

	if err := tx.Create(transaction).Error; err != nil {
		return err
	}

	for _, line := range transaction.Lines {
		if line.LotID == nil {
			continue
		}
		if err := r.adjustLotBalanceTx(tx, tenantID, *line.LotID, line.QuantityChange); err != nil {
			return err
		}
	}

	r.invalidateQuantityCaches(context.Background(), tenantID)
	return nil
}

func (r *LedgerRepository) adjustLotBalanceTx(tx *gorm.DB, tenantID string, lotID uuid.UUID, change int) error {
	result := tx.Model(&models.Lot{}).
		Where("tenant_id = ? AND id = ?", tenantID, lotID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", change),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lot %s not found", lotID)
	}
	return nil
}

// GetTransactionByID retrieves a transaction with its lines.
func (r *LedgerRepository) GetTransactionByID(tenantID string, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		Preload("Lines").
		First(&transaction).Error
	return &transaction, err
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Type        *models.TransactionType
	ComponentID *uuid.UUID
	SKUID       *uuid.UUID
	LocationID  *uuid.UUID
	Since       *time.Time
}

// ListTransactions retrieves transactions with filters and pagination,
// newest first.
func (r *LedgerRepository) ListTransactions(tenantID string, filter TransactionFilter, page, limit int) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64
	query := r.db.Model(&models.Transaction{}).Where("transactions.tenant_id = ?", tenantID)

	if filter.Type != nil {
		query = query.Where("transactions.type = ?", *filter.Type)
	}
	if filter.SKUID != nil {
		query = query.Where("transactions.sku_id = ?", *filter.SKUID)
	}
	if filter.Since != nil {
		query = query.Where("transactions.created_at >= ?", *filter.Since)
	}
	if filter.ComponentID != nil || filter.LocationID != nil {
		sub := r.db.Model(&models.TransactionLine{}).
			Select("transaction_id").
			Where("tenant_id = ?", tenantID)
		if filter.ComponentID != nil {
			sub = sub.Where("component_id = ?", *filter.ComponentID)
		}
		if filter.LocationID != nil {
			sub = sub.Where("location_id = ?", *filter.LocationID)
		}
		query = query.Where("transactions.id IN (?)", sub)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Preload("Lines").Order("transactions.created_at DESC").Find(&transactions).Error
	return transactions, total, err
}
