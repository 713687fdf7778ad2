//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/xuri/excelize/v2"

	"pricesync/internal/app"
	"pricesync/internal/apperrors"
	"pricesync/internal/config"
	"pricesync/internal/export"
)

const schemaSQL = `
CREATE TABLE product (
	id             INTEGER PRIMARY KEY,
	name           TEXT NOT NULL,
	"UnitPrice"    NUMERIC(10,2) NOT NULL,
	"UnitPriceUSD" NUMERIC(10,2),
	"Picture"      BYTEA
);
INSERT INTO product (id, name, "UnitPrice", "Picture") VALUES
	(1, 'Chai', 100.00, '\x89504e47'),
	(2, 'Chang', 19.00, NULL);
`

func startPostgres(t *testing.T, ctx context.Context) config.DatabaseConfig {
	t.Helper()

	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("shop"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategyAndDeadline(time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:           host,
		Port:           port.Int(),
		User:           "testuser",
		Password:       "testpass",
		Name:           "shop",
		SSLMode:        "disable",
		ConnectTimeout: 10 * time.Second,
	}
}

func nbpServer(t *testing.T, mids map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		code := strings.ToUpper(parts[1])
		mid, ok := mids[code]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"table":"A","code":%q,"rates":[{"no":"001/A/NBP/2024","effectiveDate":"2024-01-02","mid":%s}]}`, code, mid)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(db config.DatabaseConfig, nbpURL, dir string) *config.Config {
	return &config.Config{
		Database: db,
		NBP:      config.NBPConfig{BaseURL: nbpURL, Table: "a", Timeout: 5 * time.Second},
		Sync: config.SyncConfig{
			Table:       "product",
			BaseColumn:  "UnitPrice",
			OnRateError: config.PolicyAbort,
			Targets: []config.TargetConfig{
				{Currency: "USD", Column: "UnitPriceUSD"},
				{Currency: "EUR", Column: "UnitPriceEuro"},
			},
		},
		Schema: config.SchemaConfig{ReferenceColumn: "UnitPrice", Precision: 10, Scale: 2},
		Export: config.ExportConfig{
			Table:          "product",
			Dir:            dir,
			Format:         config.FormatXLSX,
			ExcludeColumns: []string{"Picture"},
		},
	}
}

func priceOf(t *testing.T, ctx context.Context, db config.DatabaseConfig, column string, id int) decimal.Decimal {
	t.Helper()
	conn, err := pgx.Connect(ctx, db.ConnString())
	require.NoError(t, err)
	defer conn.Close(ctx)

	var text string
	err = conn.QueryRow(ctx, fmt.Sprintf(`SELECT %s::text FROM product WHERE id = $1`, pgx.Identifier{column}.Sanitize()), id).Scan(&text)
	require.NoError(t, err)
	return decimal.RequireFromString(text)
}

func TestSyncAndExportAgainstPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db := startPostgres(t, ctx)
	conn, err := pgx.Connect(ctx, db.ConnString())
	require.NoError(t, err)
	_, err = conn.Exec(ctx, schemaSQL)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	srv := nbpServer(t, map[string]string{"USD": "4.0", "EUR": "5.0"})
	dir := t.TempDir()
	a := app.NewApp(testConfig(db, srv.URL, dir), zerolog.Nop())

	// the euro column does not exist yet; adding it twice is a no-op
	require.NoError(t, a.AddColumn(ctx, "", "UnitPriceEuro"))
	require.NoError(t, a.AddColumn(ctx, "", "UnitPriceEuro"))

	require.NoError(t, a.Run(ctx))

	assert.Equal(t, "25", priceOf(t, ctx, db, "UnitPriceUSD", 1).String())
	assert.Equal(t, "4.75", priceOf(t, ctx, db, "UnitPriceUSD", 2).String())
	assert.Equal(t, "20", priceOf(t, ctx, db, "UnitPriceEuro", 1).String())

	f, err := excelize.OpenFile(export.Path(dir, "product", config.FormatXLSX))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "UnitPrice", "UnitPriceUSD", "UnitPriceEuro"}, rows[0])

	require.NoError(t, a.DropColumn(ctx, "", "UnitPriceEuro"))
	err = a.DropColumn(ctx, "", "UnitPriceEuro")
	assert.ErrorIs(t, err, apperrors.ErrColumnNotFound)
}

func TestFailedRateLeavesPricesUntouched(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db := startPostgres(t, ctx)
	conn, err := pgx.Connect(ctx, db.ConnString())
	require.NoError(t, err)
	_, err = conn.Exec(ctx, schemaSQL)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `UPDATE product SET "UnitPriceUSD" = 7`)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	srv := nbpServer(t, map[string]string{})
	a := app.NewApp(testConfig(db, srv.URL, t.TempDir()), zerolog.Nop())

	err = a.Sync(ctx)
	require.ErrorIs(t, err, apperrors.ErrRateUnavailable)
	assert.Equal(t, "7", priceOf(t, ctx, db, "UnitPriceUSD", 1).String())
}
