package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dyike/StockSync/internal/storage"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Store is a storage.Store speaking the PostgREST dialect served by Supabase.
type Store struct {
	client *resty.Client
}

var _ storage.Store = (*Store)(nil)

func New(baseURL, apiKey string, timeout time.Duration) *Store {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/") + "/rest/v1").
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"apikey":        apiKey,
			"Authorization": "Bearer " + apiKey,
			"Content-Type":  "application/json",
			"Accept":        "application/json",
		})

	return &Store{client: client}
}

func (s *Store) Select(ctx context.Context, table string, filter storage.Filter, columns ...string) ([]storage.Row, error) {
	if err := storage.CheckColumns(table, append(storage.SortedKeys(filter), columns...)...); err != nil {
		return nil, err
	}
	req := s.client.R().SetContext(ctx).SetQueryParams(filterParams(filter))
	if len(columns) > 0 {
		req.SetQueryParam("select", strings.Join(columns, ","))
	} else {
		req.SetQueryParam("select", "*")
	}

	log.Debug().Str("table", table).Msg("postgrest select")
	resp, err := req.Get("/" + table)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	if resp.IsError() {
		return nil, statusError("select", table, resp)
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	var rows []storage.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	return rows, nil
}

func (s *Store) Upsert(ctx context.Context, table string, row storage.Row, conflictKey string) error {
	if err := storage.CheckColumns(table, append(storage.SortedKeys(row), conflictKey)...); err != nil {
		return err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetQueryParam("on_conflict", conflictKey).
		SetBody([]storage.Row{row}).
		Post("/" + table)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	if resp.IsError() {
		return statusError("upsert", table, resp)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table string, patch storage.Row, filter storage.Filter) error {
	if err := storage.CheckColumns(table, append(storage.SortedKeys(patch), storage.SortedKeys(filter)...)...); err != nil {
		return err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParams(filterParams(filter)).
		SetBody(patch).
		Patch("/" + table)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if resp.IsError() {
		return statusError("update", table, resp)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, table string, row storage.Row) error {
	if err := storage.CheckColumns(table, storage.SortedKeys(row)...); err != nil {
		return err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(row).
		Post("/" + table)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		return fmt.Errorf("insert %s: %w", table, storage.ErrDuplicateKey)
	}
	if resp.IsError() {
		return statusError("insert", table, resp)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// filterParams renders equality filters as PostgREST "col=eq.value" parameters.
func filterParams(filter storage.Filter) map[string]string {
	params := make(map[string]string, len(filter))
	for k, v := range filter {
		params[k] = "eq." + fmt.Sprint(v)
	}
	return params
}

func statusError(op, table string, resp *resty.Response) error {
	return fmt.Errorf("%s %s: HTTP %d: %s", op, table, resp.StatusCode(), strings.TrimSpace(resp.String()))
}
