// Package supabase implements repository.Store against a hosted Supabase
// project through its PostgREST endpoint.
package supabase

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/config"
	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/repository"
)

var _ repository.Store = (*Store)(nil)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"

	// pageSize matches Supabase's default db-max-rows.
	pageSize = 1000
)

// Store talks to /rest/v1 with the project's API key.
type Store struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewStore builds a resty-backed PostgREST client.
func NewStore(cfg config.SupabaseConfig, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimSuffix(cfg.URL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(base+"/rest/v1").
		SetHeader("apikey", cfg.Key).
		SetHeader("Authorization", "Bearer "+cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Store{http: client, logger: logger.Named("repo.supabase")}
}

func (s *Store) request(ctx context.Context) *resty.Request {
	return s.http.R().SetContext(ctx).SetError(&apiError{})
}

// check converts transport failures and PostgREST error bodies into domain errors.
func (s *Store) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return models.Unavailable(op, err)
	}
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}

	apiErr, _ := resp.Error().(*apiError)
	if apiErr == nil {
		apiErr = &apiError{}
	}
	s.logger.Warn("postgrest request failed",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("code", apiErr.Code),
		zap.String("message", apiErr.Message))

	switch apiErr.Code {
	case "23503":
		return fmt.Errorf("%s: %w: %s", op, models.ErrNotFound, apiErr.Message)
	case "23514", "22P02":
		return fmt.Errorf("%s: %w: %s", op, models.ErrValidation, apiErr.Message)
	}
	return fmt.Errorf("%s: %w: status=%d code=%s message=%s", op, models.ErrStoreUnavailable, resp.StatusCode(), apiErr.Code, apiErr.Message)
}

func eventQuery(filter models.EventFilter) url.Values {
	q := url.Values{}
	q.Set("select", "*")
	if filter.Since != nil {
		q.Add("created_at", "gte."+filter.Since.UTC().Format(timestampLayout))
	}
	if filter.Until != nil {
		q.Add("created_at", "lt."+filter.Until.UTC().Format(timestampLayout))
	}
	if filter.Descending {
		q.Set("order", "created_at.desc,id.asc")
	} else {
		q.Set("order", "created_at.asc,id.asc")
	}
	return q
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "name.asc,id.asc")
	rows, err := listAll[productRow](ctx, s, "list products", tableProducts, q)
	if err != nil {
		return nil, err
	}

	out := make([]models.Product, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) ListProductionEvents(ctx context.Context, filter models.EventFilter) ([]models.ProductionEvent, error) {
	rows, err := listAll[batchRow](ctx, s, "list production events", tableProduction, eventQuery(filter))
	if err != nil {
		return nil, err
	}

	out := make([]models.ProductionEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) ListSaleEvents(ctx context.Context, filter models.EventFilter) ([]models.SaleEvent, error) {
	rows, err := listAll[saleRow](ctx, s, "list sale events", tableSales, eventQuery(filter))
	if err != nil {
		return nil, err
	}

	out := make([]models.SaleEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// listAll pages through a table with limit/offset. PostgREST truncates
// responses at db-max-rows without an error, so paging continues until the
// exact count from Content-Range is reached, or a short page when the server
// does not report one.
func listAll[R any](ctx context.Context, s *Store, op, table string, q url.Values) ([]R, error) {
	var (
		all      []R
		requests int
	)
	for offset := 0; ; {
		params := maps.Clone(q)
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("offset", strconv.Itoa(offset))

		var page []R
		resp, err := s.request(ctx).
			SetHeader("Prefer", "count=exact").
			SetQueryParamsFromValues(params).
			SetResult(&page).
			Get("/" + table)
		requests++
		if err := s.check(op, resp, err); err != nil {
			return nil, err
		}

		all = append(all, page...)
		offset += len(page)

		total, known := contentRangeTotal(resp.Header().Get("Content-Range"))
		if len(page) == 0 || (known && offset >= total) || (!known && len(page) < pageSize) {
			break
		}
	}

	if requests > 1 {
		s.logger.Debug("paged listing", zap.String("op", op), zap.Int("requests", requests), zap.Int("rows", len(all)))
	}
	return all, nil
}

// contentRangeTotal reads the total from "0-999/1500". "*" means unknown.
func contentRangeTotal(header string) (int, bool) {
	_, total, ok := strings.Cut(header, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *Store) InsertProductionEvents(ctx context.Context, batch []models.NewProductionEvent) ([]models.ProductionEvent, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	payload := make([]newBatchRow, len(batch))
	for i, b := range batch {
		payload[i] = newBatchRow{ProductID: b.ProductID, QuantityMade: b.Quantity, UnitPrice: b.UnitPrice}
	}

	var rows []batchRow
	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(payload).
		SetResult(&rows).
		Post("/" + tableProduction)
	if err := s.check("insert production events", resp, err); err != nil {
		return nil, err
	}

	out := make([]models.ProductionEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) InsertSaleEvents(ctx context.Context, batch []models.NewSaleEvent) ([]models.SaleEvent, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	payload := make([]newSaleRow, len(batch))
	for i, b := range batch {
		payload[i] = newSaleRow{ProductID: b.ProductID, QuantitySold: b.Quantity, LoggedBy: b.RecordedBy, UnitPrice: b.UnitPrice}
	}

	var rows []saleRow
	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(payload).
		SetResult(&rows).
		Post("/" + tableSales)
	if err := s.check("insert sale events", resp, err); err != nil {
		return nil, err
	}

	out := make([]models.SaleEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UpdateEventQuantity relies on the revision trigger installed by the schema
// migration to bump the row revision.
func (s *Store) UpdateEventQuantity(ctx context.Context, kind models.EventKind, id uuid.UUID, quantity int, expectedRevision *int64) error {
	table, column, ok := eventTable(kind)
	if !ok {
		return models.NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", kind))
	}

	var rows []map[string]any
	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(rowFilter(id, expectedRevision)).
		SetBody(map[string]any{column: quantity}).
		SetResult(&rows).
		Patch("/" + table)
	op := fmt.Sprintf("update %s %s", kind, id)
	if err := s.check(op, resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return s.missOrConflict(ctx, op, table, id, expectedRevision)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, kind models.EventKind, id uuid.UUID) error {
	table, _, ok := eventTable(kind)
	if !ok {
		return models.NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", kind))
	}

	var rows []map[string]any
	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id.String()).
		SetResult(&rows).
		Delete("/" + table)
	op := fmt.Sprintf("delete %s %s", kind, id)
	if err := s.check(op, resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uuid.UUID, patch models.ProductPatch, expectedRevision *int64) (models.Product, error) {
	body := map[string]any{}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.Price != nil {
		body["default_price"] = *patch.Price
	}
	if patch.Active != nil {
		body["is_active"] = *patch.Active
	}

	var rows []productRow
	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(rowFilter(id, expectedRevision)).
		SetBody(body).
		SetResult(&rows).
		Patch("/" + tableProducts)
	op := fmt.Sprintf("update product %s", id)
	if err := s.check(op, resp, err); err != nil {
		return models.Product{}, err
	}
	if len(rows) == 0 {
		return models.Product{}, s.missOrConflict(ctx, op, tableProducts, id, expectedRevision)
	}
	return rows[0].toModel(), nil
}

func (s *Store) InsertProduct(ctx context.Context, np models.NewProduct) (models.Product, error) {
	row := newProductRow{Name: np.Name, DefaultPrice: np.Price, IsActive: np.Active}
	if np.ImageRef != "" {
		row.ImageURL = &np.ImageRef
	}

	var rows []productRow
	resp, err := s.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]newProductRow{row}).
		SetResult(&rows).
		Post("/" + tableProducts)
	if err := s.check("insert product", resp, err); err != nil {
		return models.Product{}, err
	}
	if len(rows) == 0 {
		return models.Product{}, fmt.Errorf("insert product: %w: empty representation", models.ErrStoreUnavailable)
	}
	return rows[0].toModel(), nil
}

func rowFilter(id uuid.UUID, expectedRevision *int64) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+id.String())
	if expectedRevision != nil {
		q.Set("revision", "eq."+strconv.FormatInt(*expectedRevision, 10))
	}
	return q
}

// missOrConflict tells a vanished row apart from a stale revision after a
// PATCH matched nothing.
func (s *Store) missOrConflict(ctx context.Context, op, table string, id uuid.UUID, expectedRevision *int64) error {
	if expectedRevision == nil {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var rows []map[string]any
	resp, err := s.request(ctx).
		SetQueryParams(map[string]string{"select": "id", "id": "eq." + id.String()}).
		SetResult(&rows).
		Get("/" + table)
	if err := s.check(op, resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrConflict)
}
