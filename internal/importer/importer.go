// Package importer loads product catalog CSV exports into the state
// store and maintains the lookup indexes the catalog search reads.
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/jensneuse/abstractlogger"

	"github.com/storegraph/storegraph/internal/backend"
	"github.com/storegraph/storegraph/internal/statestore"
)

// Importer ingests semicolon-delimited product CSV files. Each row is
// stored as a JSON record under "p-<sku>" without expiry, and three
// indexes are rewritten afterwards: url_key, name (search) and
// category_uid, each a list of {sku: <record key>, <field>} entries.
type Importer struct {
	store  statestore.Store
	client *http.Client
	log    log.Logger
}

func New(store statestore.Store, client *http.Client, logger log.Logger) *Importer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Importer{store: store, client: client, log: logger}
}

// Main is the action entry point. params must carry "file", the URL of
// the CSV export to ingest. The return value is an action envelope
// whose body reports the number of stored products.
func (i *Importer) Main(ctx context.Context, params map[string]any) (any, error) {
	file, _ := params["file"].(string)
	if file == "" {
		return errorResponse(400, "missing parameter(s) 'file'"), nil
	}

	count, err := i.ImportURL(ctx, file)
	if err != nil {
		i.log.Error("importer: import failed", log.String("file", file), log.Error(err))
		return errorResponse(500, "server error"), nil
	}
	return map[string]any{
		"statusCode": 200,
		"body":       map[string]any{"storedProducts": count},
	}, nil
}

// ImportURL fetches the CSV file and imports it.
func (i *Importer) ImportURL(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("importer: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("importer: fetching %s: status %d", url, resp.StatusCode)
	}
	return i.Import(ctx, resp.Body)
}

// indexEntry links an index field value back to its product record key.
type indexEntry struct {
	Sku   string
	Value string
}

// Import reads the CSV stream and stores records and indexes.
func (i *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("importer: reading CSV header: %w", err)
	}

	var urlKeys, names, categories []indexEntry
	stored := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stored, fmt.Errorf("importer: reading CSV row: %w", err)
		}

		product := map[string]string{}
		for col, name := range header {
			if col < len(row) {
				product[strings.TrimSpace(name)] = row[col]
			}
		}
		sku := product["sku"]
		if sku == "" {
			i.log.Debug("importer: skipping row without sku")
			continue
		}

		key := backend.ProductKeyPrefix + sku
		raw, err := json.Marshal(product)
		if err != nil {
			return stored, err
		}
		if err := i.store.Put(key, raw, statestore.NoExpiry); err != nil {
			return stored, fmt.Errorf("importer: storing %s: %w", key, err)
		}
		stored++

		urlKeys = append(urlKeys, indexEntry{Sku: key, Value: product["url_key"]})
		names = append(names, indexEntry{Sku: key, Value: product["name"]})
		categories = append(categories, indexEntry{Sku: key, Value: product["category_uid"]})
	}

	if stored == 0 {
		return 0, nil
	}

	i.log.Debug("importer: storing indexes", log.Int("products", stored))
	if err := i.putIndex(backend.IndexUrlKeyKey, "url_key", urlKeys); err != nil {
		return stored, err
	}
	if err := i.putIndex(backend.IndexSearchKey, "name", names); err != nil {
		return stored, err
	}
	if err := i.putIndex(backend.IndexCategoryKey, "category_uid", categories); err != nil {
		return stored, err
	}
	return stored, nil
}

func (i *Importer) putIndex(key, field string, entries []indexEntry) error {
	list := make([]map[string]string, len(entries))
	for n, e := range entries {
		list[n] = map[string]string{"sku": e.Sku, field: e.Value}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := i.store.Put(key, raw, statestore.NoExpiry); err != nil {
		return fmt.Errorf("importer: storing index %s: %w", key, err)
	}
	return nil
}

func errorResponse(status int, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"statusCode": status,
			"body":       map[string]any{"error": message},
		},
	}
}
