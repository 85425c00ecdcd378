package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/models"
)

func testFallbackRecord() *models.FallbackRecord {
	return models.NewFallbackRecord(models.ApplicationRecord{
		ID:             "7b1c2f4e-0c8a-4d2b-9a51-2f0e7c6d9a10",
		Name:           "Thandi Mokoena",
		LoanAmount:     10000,
		LoanType:       "Unsecured Loan",
		InterestRate:   50,
		MonthlyPayment: 15000,
		Status:         models.StatusNewLead,
		PaymentHistory: []json.RawMessage{},
		Notes:          []json.RawMessage{},
		Documents:      []json.RawMessage{},
	}, "2024-02-10T09:05:07.000Z")
}

func TestRedisStore_AppendPushesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, DefaultKey)

	require.NoError(t, store.Append(context.Background(), testFallbackRecord()))
	require.NoError(t, store.Append(context.Background(), testFallbackRecord()))

	items, err := mr.List(DefaultKey)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, "pending-upload", got["status"])
	assert.Equal(t, "2024-02-10T09:05:07.000Z", got["savedAt"])
	assert.Equal(t, float64(1), got["schemaVersion"])
	assert.Equal(t, "Thandi Mokoena", got["name"])
}

func TestRedisStore_AppendError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, DefaultKey)

	rec := testFallbackRecord()
	data, err := encode(rec)
	require.NoError(t, err)
	mock.ExpectRPush(DefaultKey, data).SetErr(errors.New("READONLY"))

	err = store.Append(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewPostgresStore(db, DefaultKey)
	require.NoError(t, err)

	rec := testFallbackRecord()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cashflow_leads (id, schema_version, status, saved_at, record)")).
		WithArgs(rec.ID, 1, "pending-upload", rec.SavedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Append(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewPostgresStore(db, DefaultKey)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO cashflow_leads").WillReturnError(errors.New("disk full"))

	err = store.Append(context.Background(), testFallbackRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewPostgresStore(db, DefaultKey)
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cashflow_leads").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_RejectsUnsafeTable(t *testing.T) {
	_, err := NewPostgresStore(nil, "leads; DROP TABLE x")
	assert.Error(t, err)
}

func newESServer(t *testing.T, status int, capture *map[string]interface{}, path *string) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if path != nil {
			*path = r.URL.Path + "?" + r.URL.RawQuery
		}
		if capture != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, capture)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchStore_Append(t *testing.T) {
	var doc map[string]interface{}
	var path string
	store := NewElasticsearchStore(newESServer(t, http.StatusCreated, &doc, &path), DefaultKey)

	rec := testFallbackRecord()
	require.NoError(t, store.Append(context.Background(), rec))

	assert.Contains(t, path, "/cashflow_leads/_create/"+rec.ID)
	assert.Contains(t, path, "refresh=false")
	assert.Equal(t, "pending-upload", doc["status"])
}

func TestElasticsearchStore_AppendConflict(t *testing.T) {
	store := NewElasticsearchStore(newESServer(t, http.StatusConflict, nil, nil), DefaultKey)

	err := store.Append(context.Background(), testFallbackRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Append(context.Background(), testFallbackRecord()))

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "pending-upload", records[0].Status)
	assert.Equal(t, 1, records[0].SchemaVersion)

	store.FailWith(errors.New("quota exceeded"))
	assert.EqualError(t, store.Append(context.Background(), testFallbackRecord()), "quota exceeded")
	assert.Equal(t, 1, store.Len())
}

func TestNew_SelectsBackend(t *testing.T) {
	log := logger.NewTestLogger(t)

	mem, err := New(config.FallbackConfig{Backend: "memory"}, Connections{}, log)
	require.NoError(t, err)
	assert.Equal(t, "memory", mem.Backend())

	_, err = New(config.FallbackConfig{Backend: "redis"}, Connections{}, log)
	assert.Error(t, err)

	_, err = New(config.FallbackConfig{Backend: "s3"}, Connections{}, log)
	assert.Error(t, err)
}
