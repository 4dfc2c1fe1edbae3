package api

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTx(t *testing.T) context.Context {
	t.Helper()

	db, err := sql.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	for _, stmt := range []string{
		`CREATE TABLE acme_product (product_id INTEGER PRIMARY KEY, product_name TEXT, product_price REAL, product_category_1 TEXT)`,
		`INSERT INTO acme_product VALUES (1, 'Widget', 9.5, 'tools'), (2, 'Gadget', 20, 'tools'), (3, 'Doohickey', 3.25, 'toys')`,
		`CREATE VIEW view_acme_data_product AS SELECT * FROM acme_product`,
		`CREATE TABLE secret (value TEXT)`,
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}

	tx, err := db.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })

	return context.WithValue(ctx, TransactionKey, tx)
}

func TestUserLifecycle(t *testing.T) {
	ctx := newTestTx(t)

	id, err := CreateUserWithCredentials(ctx, "a@example.com", "secret", "Alice", "acme")
	require.NoError(t, err)

	u, err := ReadUser(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "acme", u.OrgName)
	assert.NoError(t, u.Authenticate(ctx, "secret"))
	assert.Error(t, u.Authenticate(ctx, "wrong"))

	require.NoError(t, u.ChangePassword(ctx, "secret", "better"))
	u, err = ReadUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.NoError(t, u.Authenticate(ctx, "better"))

	missing, err := ReadUser(ctx, id+100)
	assert.NoError(t, err)
	assert.Nil(t, missing)

	count, err := CountOrganizationUsers(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = CountOrganizationUsers(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCreateUserDuplicate(t *testing.T) {
	ctx := newTestTx(t)

	id, err := CreateUser(ctx, &User{Email: "a@example.com", Hash: []byte("x"), Name: "Alice", OrgName: "acme"})
	require.NoError(t, err)

	_, err = CreateUser(ctx, &User{Email: "a@example.com", Hash: []byte("x"), Name: "Other", OrgName: "acme"})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrorTypeDuplicate, apiErr.Type)
	assert.Equal(t, id, apiErr.DuplicateID)
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name string
		user User
		ok   bool
	}{
		{"valid", User{Email: "a@example.com", Name: "A", OrgName: "acme_1"}, true},
		{"bad email", User{Email: "not an email", Name: "A", OrgName: "acme"}, false},
		{"no name", User{Email: "a@example.com", OrgName: "acme"}, false},
		{"no org", User{Email: "a@example.com", Name: "A"}, false},
		{"org with injection", User{Email: "a@example.com", Name: "A", OrgName: "acme; drop"}, false},
		{"org uppercase", User{Email: "a@example.com", Name: "A", OrgName: "Acme"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCheckQuery(t *testing.T) {
	d := &Dataset{Org: "acme"}
	tests := []struct {
		name  string
		query string
		ok    bool
	}{
		{"select", "SELECT * FROM view_acme_data_product;", true},
		{"join", "SELECT p.product_name FROM view_acme_data_product p JOIN view_acme_data_transaction_product tp ON tp.product_id = p.product_id", true},
		{"cte", "WITH top AS (SELECT * FROM view_acme_data_product) SELECT * FROM top", true},
		{"extract", "SELECT EXTRACT(YEAR FROM event_start_time) FROM view_acme_data_event", true},
		{"empty", "  ; ", false},
		{"two statements", "SELECT 1; SELECT 2", false},
		{"delete", "DELETE FROM view_acme_data_product", false},
		{"hidden write", "WITH x AS (SELECT 1) UPDATE view_acme_data_product SET product_name = ''", false},
		{"other org", "SELECT * FROM view_other_data_product", false},
		{"raw table", "SELECT * FROM acme_product", false},
		{"semicolon in string", "SELECT * FROM view_acme_data_product WHERE product_name = 'a;b'", true},
		{"write word in string", "SELECT * FROM view_acme_data_transaction WHERE transaction_status = 'delete'", true},
		{"left join", "SELECT c.customer_id, COUNT(t.transaction_id) FROM view_acme_data_customer c LEFT JOIN view_acme_data_transaction t ON t.transaction_customer_id = c.customer_id GROUP BY c.customer_id ORDER BY 2 DESC, 1 LIMIT 5", true},
		{"subquery", "SELECT * FROM (SELECT product_id, product_name FROM view_acme_data_product) p WHERE p.product_id IN (SELECT product_id FROM view_acme_data_event_product)", true},
		{"in view", "SELECT * FROM view_acme_data_product WHERE product_id IN view_acme_data_event_product", true},
		{"trim", "SELECT TRIM(BOTH ' ' FROM product_name), product_price FROM view_acme_data_product", true},
		{"quoted view", "SELECT * FROM `view_acme_data_product`", true},
		{"comma join user", "SELECT * FROM view_acme_data_product, user", false},
		{"comma join other org", "SELECT * FROM view_acme_data_product p, view_other_data_customer c", false},
		{"comma after join", "SELECT * FROM view_acme_data_product p JOIN view_acme_data_event_product e ON e.product_id = p.product_id, user", false},
		{"parenthesized list", "SELECT * FROM view_acme_data_product JOIN (view_acme_data_event_product, user)", false},
		{"parenthesized table", "SELECT * FROM (user)", false},
		{"subquery then comma", "SELECT * FROM (SELECT 1) a, user", false},
		{"org with prefix", "SELECT * FROM view_acme_data_evil_data_customer", false},
		{"quoted user", `SELECT * FROM "user"`, false},
		{"bracketed user", "SELECT * FROM [user]", false},
		{"string table", "SELECT * FROM 'user'", false},
		{"qualified", "SELECT * FROM main.user", false},
		{"table function", "SELECT * FROM pragma_table_info('user')", false},
		{"scalar subquery", "SELECT (SELECT hash FROM user LIMIT 1) FROM view_acme_data_product", false},
		{"in table", "SELECT * FROM view_acme_data_product WHERE product_name IN user", false},
		{"straight join", "SELECT * FROM view_acme_data_product STRAIGHT_JOIN user", false},
		{"union table", "SELECT * FROM view_acme_data_product UNION TABLE user", false},
		{"nested cte does not leak", "SELECT * FROM (WITH user AS (SELECT 1) SELECT * FROM user) x JOIN user ON 1 = 1", false},
		{"window name is not a table", "SELECT * FROM view_acme_data_product WINDOW user AS (ORDER BY product_id) UNION SELECT * FROM user", false},
		{"cte used before definition", "WITH a AS (SELECT * FROM b), b AS (SELECT 1) SELECT * FROM a", false},
		{"comment", "SELECT * FROM view_acme_data_product -- x", false},
		{"backslash", `SELECT 'a\', hash FROM user`, false},
		{"into outfile", "SELECT * FROM view_acme_data_product INTO OUTFILE '/tmp/x'", false},
		{"load file", "SELECT LOAD_FILE('/etc/passwd')", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CheckQuery(tt.query)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRunQuery(t *testing.T) {
	ctx := newTestTx(t)
	d := &Dataset{Org: "acme"}

	table, err := d.RunQuery(ctx, "SELECT product_name, product_price FROM view_acme_data_product ORDER BY product_id", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"product_name", "product_price"}, table.Columns)
	assert.Equal(t, [][]interface{}{{"Widget", 9.5}, {"Gadget", 20.0}}, table.Rows)
	assert.True(t, table.Truncated)

	assert.Equal(t, []map[string]interface{}{
		{"product_name": "Widget", "product_price": 9.5},
		{"product_name": "Gadget", "product_price": 20.0},
	}, table.Records())

	assert.Equal(t, "| product_name | product_price |\n|---|---|\n| Widget | 9.5 |\n| Gadget | 20 |\n\n(showing the first 2 rows)\n", table.Markdown())
}

func TestRunQueryAggregate(t *testing.T) {
	ctx := newTestTx(t)
	d := &Dataset{Org: "acme"}

	table, err := d.RunQuery(ctx, "SELECT product_category_1 AS category, COUNT(*) AS total FROM view_acme_data_product GROUP BY product_category_1 ORDER BY category", 20)
	require.NoError(t, err)
	assert.False(t, table.Truncated)
	assert.Equal(t, [][]interface{}{{"tools", int64(2)}, {"toys", int64(1)}}, table.Rows)
}

func TestRunQueryRejected(t *testing.T) {
	ctx := newTestTx(t)
	d := &Dataset{Org: "acme"}

	_, err := d.RunQuery(ctx, "SELECT * FROM secret", 20)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrorTypeUser, apiErr.Type)

	_, err = d.RunQuery(ctx, "SELECT u.email, u.hash FROM view_acme_data_product p, user u", 5)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrorTypeUser, apiErr.Type)

	_, err = d.RunQuery(ctx, "SELECT missing_column FROM view_acme_data_product", 20)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrorTypeUser, apiErr.Type)
}

func TestMarkdownEmptyAndEscaped(t *testing.T) {
	assert.Equal(t, "No rows returned.", (&Table{Columns: []string{"a"}}).Markdown())

	table := &Table{Columns: []string{"a|b"}, Rows: [][]interface{}{{"x|y"}, {nil}}}
	assert.Equal(t, "| a\\|b |\n|---|\n| x\\|y |\n|  |\n", table.Markdown())
}

func TestSchema(t *testing.T) {
	s := (&Dataset{Org: "acme"}).Schema()
	assert.Contains(t, s, "Table view_acme_data_customer, columns = [customer_id,")
	assert.Contains(t, s, "view_acme_data_event.event_id = view_acme_data_event_product.event_id")
}
