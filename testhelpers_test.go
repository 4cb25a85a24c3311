package contacts_test

import (
	"context"
	"database/sql"
	"testing"

	contacts "github.com/goliatone/go-contacts"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// setupTestDB opens a private in-memory database with the schema applied.
// MaxOpenConns(1) keeps every statement on the same connection, which is
// what scopes the :memory: database to this test.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	err = db.ResetModel(context.Background(), (*contacts.User)(nil), (*contacts.Contact)(nil))
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testConfig is a plain Config implementation for tests
type testConfig struct {
	signingKey      string
	tokenExpiration int
	issuer          string
	baseURL         string
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey:      "test-signing-key",
		tokenExpiration: 23,
		issuer:          "test-issuer",
		baseURL:         "http://localhost:3000",
	}
}

func (c testConfig) GetSigningKey() string   { return c.signingKey }
func (c testConfig) GetTokenExpiration() int { return c.tokenExpiration }
func (c testConfig) GetIssuer() string       { return c.issuer }
func (c testConfig) GetBaseURL() string      { return c.baseURL }

// chanMailer records dispatched verification links. Delivery runs on a
// background goroutine, so tests receive from the channel instead of
// inspecting state.
type chanMailer struct {
	links chan string
}

func newChanMailer() *chanMailer {
	return &chanMailer{links: make(chan string, 8)}
}

func (m *chanMailer) SendVerification(ctx context.Context, email, link string) error {
	m.links <- link
	return nil
}
