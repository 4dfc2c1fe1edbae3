package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

//DatasetTables are the data views every organization has, without the view_<org>_data_ prefix
var DatasetTables = []string{"customer", "product", "transaction", "transaction_product", "event", "event_product"}

var datasetColumns = map[string][]string{
	"customer": {"customer_id", "customer_first_name", "customer_last_name", "customer_email", "customer_date_of_birth",
		"customer_phone_number", "customer_gender", "customer_job_title", "customer_location", "customer_account_date"},
	"product": {"product_id", "product_name", "product_url", "product_description", "product_category_1",
		"product_category_2", "product_category_3", "product_quantity", "product_price", "product_from_date", "product_to_date"},
	"transaction": {"transaction_id", "transaction_customer_id", "transaction_peusdo_user", "transaction_revenue_value",
		"transaction_tax_value", "transaction_refund_value", "transaction_shipping_value", "transaction_shipping_type",
		"transaction_shipping_address", "transaction_status", "transaction_time"},
	"transaction_product": {"transaction_id", "product_id", "transaction_product_quantity", "transaction_product_description",
		"transaction_product_extra_value_1", "transaction_product_extra_value_2", "transaction_product_extra_value_3"},
	"event": {"event_id", "event_type", "event_customer_id", "event_touchpoint_type", "event_peusdo_user",
		"event_device_category", "event_device_brand", "event_device_os", "event_device_browser", "event_device_language",
		"event_device_geography_continent", "event_device_geography_sub_continent", "event_geography_country",
		"event_geography_city", "event_session_id", "event_page_title", "event_page_url", "event_traffic_source",
		"event_ip_address", "event_keyword", "event_start_time", "event_end_time", "event_is_like", "event_rate", "event_review"},
	"event_product": {"event_id", "product_id", "event_product_description", "event_product_extra_value_1",
		"event_product_extra_value_2", "event_product_extra_value_3"},
}

var datasetForeignKeys = [][2][2]string{
	{{"customer", "customer_id"}, {"transaction", "transaction_customer_id"}},
	{{"customer", "customer_id"}, {"event", "event_customer_id"}},
	{{"product", "product_id"}, {"transaction_product", "product_id"}},
	{{"product", "product_id"}, {"event_product", "product_id"}},
	{{"transaction", "transaction_id"}, {"transaction_product", "transaction_id"}},
	{{"event", "event_id"}, {"event_product", "event_id"}},
}

//Dataset is an organization's read only data.
//Queries on one Dataset run one at a time since they share the context's transaction.
type Dataset struct {
	Org string
	mu  sync.Mutex
}

//View returns the name of the view for the given table
func (d *Dataset) View(table string) string {
	return fmt.Sprintf("view_%s_data_%s", d.Org, table)
}

//Schema returns a description of the Dataset's views and their relations, for use in prompts
func (d *Dataset) Schema() string {
	var b strings.Builder
	for _, t := range DatasetTables {
		fmt.Fprintf(&b, "Table %s, columns = [%s]\n", d.View(t), strings.Join(datasetColumns[t], ", "))
	}
	keys := make([]string, 0, len(datasetForeignKeys))
	for _, fk := range datasetForeignKeys {
		keys = append(keys, fmt.Sprintf("%s.%s = %s.%s", d.View(fk[0][0]), fk[0][1], d.View(fk[1][0]), fk[1][1]))
	}
	fmt.Fprintf(&b, "Foreign keys = [%s]", strings.Join(keys, ", "))
	return b.String()
}

//CheckQuery returns an error if query is not a single read only statement over the Dataset's views.
//Every table reference must name one of the Dataset's views exactly or a common table expression.
//It returns the query without a trailing semicolon.
func (d *Dataset) CheckQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	query = strings.TrimSpace(strings.TrimRight(query, "; \t\n"))
	if query == "" {
		return "", errors.New("query must not be empty")
	}

	toks, err := tokenizeSQL(query)
	if err != nil {
		return "", err
	}
	if !toks[0].is("select") && !toks[0].is("with") {
		return "", fmt.Errorf("query must be a SELECT statement, not %s", strings.ToUpper(toks[0].text))
	}

	if err = checkTables(toks, d.views(), d.View("*")); err != nil {
		return "", err
	}

	return query, nil
}

//views returns the set of the Dataset's view names
func (d *Dataset) views() map[string]bool {
	views := make(map[string]bool, len(DatasetTables))
	for _, t := range DatasetTables {
		views[d.View(t)] = true
	}
	return views
}

//RunQuery runs query against the Dataset and returns at most limit rows
func (d *Dataset) RunQuery(ctx context.Context, query string, limit int) (*Table, error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	query, err := d.CheckQuery(query)
	if err != nil {
		return nil, &Error{Description: "Could not validate query", Type: ErrorTypeUser, Err: err}
	}
	if limit <= 0 {
		limit = 20
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT * FROM (%s) AS limited LIMIT %d", query, limit+1))
	if err != nil {
		return nil, &Error{Description: "Could not run query", Type: ErrorTypeUser, Err: err}
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, &Error{Description: "Could not read columns", Type: ErrorTypeServer, Err: err}
	}

	t := &Table{Columns: make([]string, len(types))}
	for i, ct := range types {
		t.Columns[i] = strings.ReplaceAll(ct.Name(), ".", "_")
	}

	for rows.Next() {
		if len(t.Rows) == limit {
			t.Truncated = true
			break
		}

		values := make([]interface{}, len(types))
		ptrs := make([]interface{}, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, &Error{Description: "Could not scan row", Type: ErrorTypeServer, Err: err}
		}

		row := make([]interface{}, len(types))
		for i, v := range values {
			row[i] = normalize(v, types[i].DatabaseTypeName())
		}
		t.Rows = append(t.Rows, row)
	}
	if err = rows.Err(); err != nil {
		return nil, &Error{Description: "Could not read rows", Type: ErrorTypeServer, Err: err}
	}

	return t, nil
}

//normalize converts driver values to string, int64, float64, bool, or nil
func normalize(v interface{}, dbType string) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeString(string(val), dbType)
	case string:
		return normalizeString(val, dbType)
	case time.Time:
		return val.Format(time.RFC3339)
	case int64, float64, bool:
		return val
	case int:
		return int64(val)
	case float32:
		return float64(val)
	}
	return fmt.Sprint(v)
}

func normalizeString(s, dbType string) interface{} {
	switch strings.ToUpper(dbType) {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "UNSIGNED INT", "UNSIGNED BIGINT":
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

//Table is the result of a query
type Table struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	Truncated bool            `json:"truncated"`
}

//Records returns the rows as a list of column to value maps
func (t *Table) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := make(map[string]interface{}, len(t.Columns))
		for i, c := range t.Columns {
			r[c] = row[i]
		}
		records = append(records, r)
	}
	return records
}

//HasColumn returns true if the Table has the given column
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

//Markdown returns the Table as a markdown pipe table
func (t *Table) Markdown() string {
	if len(t.Rows) == 0 {
		return "No rows returned."
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(t.Columns), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(t.Columns)) + "\n")
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		b.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
	}
	if t.Truncated {
		fmt.Fprintf(&b, "\n(showing the first %d rows)\n", len(t.Rows))
	}
	return b.String()
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}
