// Package postgres implements repository.Store directly against PostgreSQL
// with pgx. Queries are built with squirrel; the revision column is bumped by
// the trigger installed in migrations/00001_init.sql.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/repository"
)

var _ repository.Store = (*Store)(nil)

const (
	tableProducts   = "products"
	tableProduction = "inventory_batches"
	tableSales      = "sales_logs"
)

var (
	psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	productColumns    = []string{"id", "name", "default_price", "image_url", "is_active", "revision", "created_at"}
	productionColumns = []string{"id", "product_id", "quantity_made", "unit_price", "revision", "created_at"}
	saleColumns       = []string{"id", "product_id", "quantity_sold", "unit_price", "logged_by", "revision", "created_at"}
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store talks to the three bakery tables.
type Store struct {
	db     Querier
	logger *zap.Logger
}

// NewStore wraps a pool (or any Querier).
func NewStore(db Querier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("repo.postgres")}
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "list products"
	query, args, err := psql.Select(productColumns...).From(tableProducts).OrderBy("name", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return out, nil
}

func (s *Store) ListProductionEvents(ctx context.Context, filter models.EventFilter) ([]models.ProductionEvent, error) {
	const op = "list production events"
	query, args, err := eventSelect(tableProduction, productionColumns, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var out []models.ProductionEvent
	for rows.Next() {
		ev, err := scanProduction(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return out, nil
}

func (s *Store) ListSaleEvents(ctx context.Context, filter models.EventFilter) ([]models.SaleEvent, error) {
	const op = "list sale events"
	query, args, err := eventSelect(tableSales, saleColumns, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var out []models.SaleEvent
	for rows.Next() {
		ev, err := scanSale(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return out, nil
}

func eventSelect(table string, columns []string, filter models.EventFilter) squirrel.SelectBuilder {
	q := psql.Select(columns...).From(table)
	if filter.Since != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.Since})
	}
	if filter.Until != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.Until})
	}
	if filter.Descending {
		return q.OrderBy("created_at DESC", "id")
	}
	return q.OrderBy("created_at", "id")
}

func (s *Store) InsertProductionEvents(ctx context.Context, batch []models.NewProductionEvent) ([]models.ProductionEvent, error) {
	const op = "insert production events"
	if len(batch) == 0 {
		return []models.ProductionEvent{}, nil
	}

	insert := psql.Insert(tableProduction).Columns("product_id", "quantity_made", "unit_price")
	for _, row := range batch {
		insert = insert.Values(row.ProductID, row.Quantity, row.UnitPrice)
	}
	query, args, err := insert.Suffix(returning(productionColumns)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	out := make([]models.ProductionEvent, 0, len(batch))
	for rows.Next() {
		ev, err := scanProduction(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	s.logger.Debug("inserted production events", zap.Int("count", len(out)))
	return out, nil
}

func (s *Store) InsertSaleEvents(ctx context.Context, batch []models.NewSaleEvent) ([]models.SaleEvent, error) {
	const op = "insert sale events"
	if len(batch) == 0 {
		return []models.SaleEvent{}, nil
	}

	insert := psql.Insert(tableSales).Columns("product_id", "quantity_sold", "unit_price", "logged_by")
	for _, row := range batch {
		insert = insert.Values(row.ProductID, row.Quantity, nullDecimal(row.UnitPrice), row.RecordedBy)
	}
	query, args, err := insert.Suffix(returning(saleColumns)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	out := make([]models.SaleEvent, 0, len(batch))
	for rows.Next() {
		ev, err := scanSale(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	s.logger.Debug("inserted sale events", zap.Int("count", len(out)))
	return out, nil
}

func (s *Store) UpdateEventQuantity(ctx context.Context, kind models.EventKind, id uuid.UUID, quantity int, expectedRevision *int64) error {
	table, column, ok := eventTable(kind)
	if !ok {
		return models.NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", kind))
	}
	op := fmt.Sprintf("update %s %s", kind, id)

	update := psql.Update(table).Set(column, quantity).Where(squirrel.Eq{"id": id})
	if expectedRevision != nil {
		update = update.Where(squirrel.Eq{"revision": *expectedRevision})
	}
	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, op, table, id, expectedRevision)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, kind models.EventKind, id uuid.UUID) error {
	table, _, ok := eventTable(kind)
	if !ok {
		return models.NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", kind))
	}
	op := fmt.Sprintf("delete %s %s", kind, id)

	query, args, err := psql.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uuid.UUID, patch models.ProductPatch, expectedRevision *int64) (models.Product, error) {
	op := fmt.Sprintf("update product %s", id)
	if patch.Empty() {
		return models.Product{}, models.NewValidationError("patch", "at least one field must change")
	}

	update := psql.Update(tableProducts).Where(squirrel.Eq{"id": id})
	if patch.Name != nil {
		update = update.Set("name", *patch.Name)
	}
	if patch.Price != nil {
		update = update.Set("default_price", *patch.Price)
	}
	if patch.Active != nil {
		update = update.Set("is_active", *patch.Active)
	}
	if expectedRevision != nil {
		update = update.Where(squirrel.Eq{"revision": *expectedRevision})
	}
	query, args, err := update.Suffix(returning(productColumns)).ToSql()
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: build query: %w", op, err)
	}

	p, err := scanProduct(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, s.missOrConflict(ctx, op, tableProducts, id, expectedRevision)
	}
	if err != nil {
		return models.Product{}, mapError(op, err)
	}
	return p, nil
}

func (s *Store) InsertProduct(ctx context.Context, np models.NewProduct) (models.Product, error) {
	const op = "insert product"
	var imageURL *string
	if np.ImageRef != "" {
		imageURL = &np.ImageRef
	}

	query, args, err := psql.Insert(tableProducts).
		Columns("name", "default_price", "image_url", "is_active").
		Values(np.Name, np.Price, imageURL, np.Active).
		Suffix(returning(productColumns)).
		ToSql()
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: build query: %w", op, err)
	}

	p, err := scanProduct(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Product{}, mapError(op, err)
	}
	return p, nil
}

// missOrConflict tells a vanished row apart from a stale revision after an
// update matched nothing.
func (s *Store) missOrConflict(ctx context.Context, op, table string, id uuid.UUID, expectedRevision *int64) error {
	if expectedRevision == nil {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	query, args, err := psql.Select("1").From(table).Where(squirrel.Eq{"id": id}).Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return mapError(op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrConflict)
}

func eventTable(kind models.EventKind) (table, quantityColumn string, ok bool) {
	switch kind {
	case models.KindProduction:
		return tableProduction, "quantity_made", true
	case models.KindSale:
		return tableSales, "quantity_sold", true
	default:
		return "", "", false
	}
}

func returning(columns []string) string {
	return "RETURNING " + strings.Join(columns, ", ")
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func scanProduct(row pgx.Row) (models.Product, error) {
	var (
		p        models.Product
		imageURL *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &imageURL, &p.Active, &p.Revision, &p.CreatedAt); err != nil {
		return models.Product{}, err
	}
	if imageURL != nil {
		p.ImageRef = *imageURL
	}
	return p, nil
}

func scanProduction(row pgx.Row) (models.ProductionEvent, error) {
	var ev models.ProductionEvent
	if err := row.Scan(&ev.ID, &ev.ProductID, &ev.Quantity, &ev.UnitPrice, &ev.Revision, &ev.CreatedAt); err != nil {
		return models.ProductionEvent{}, err
	}
	return ev, nil
}

func scanSale(row pgx.Row) (models.SaleEvent, error) {
	var (
		ev    models.SaleEvent
		price decimal.NullDecimal
	)
	if err := row.Scan(&ev.ID, &ev.ProductID, &ev.Quantity, &price, &ev.RecordedBy, &ev.Revision, &ev.CreatedAt); err != nil {
		return models.SaleEvent{}, err
	}
	if price.Valid {
		p := price.Decimal
		ev.UnitPrice = &p
	}
	return ev, nil
}
