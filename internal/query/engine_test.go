package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/store"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"customers.csv": "customer_id,first_name,customer_segment\n" +
			"CUST001,Ada,VIP\n" +
			"CUST002,Alan,Standard\n",
		"orders.csv": "order_id,customer_id,discount_applied\n" +
			"ORD001,CUST001,0.00\n" +
			"ORD002,CUST001,5.50\n" +
			"ORD003,CUST002,0.00\n",
		"order_items.csv": "order_item_id,order_id,quantity,total_price\n" +
			"OI001,ORD001,2,40.00\n" +
			"OI002,ORD002,1,19.99\n" +
			"OI003,ORD003,3,60.00\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	return NewEngine(store.New(store.Config{Dir: dir}))
}

func TestExecuteSelect(t *testing.T) {
	engine := testEngine(t)

	result, err := engine.Execute(context.Background(),
		"SELECT customer_id, first_name FROM customers ORDER BY customer_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"customer_id", "first_name"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "CUST001", result.Rows[0]["customer_id"])
	assert.Equal(t, "Ada", result.Rows[0]["first_name"])
}

func TestExecuteJoinAggregate(t *testing.T) {
	engine := testEngine(t)

	result, err := engine.Execute(context.Background(), `
		SELECT c.customer_id, SUM(i.total_price) AS revenue
		FROM customers c
		JOIN orders o ON o.customer_id = c.customer_id
		JOIN order_items i ON i.order_id = o.order_id
		GROUP BY c.customer_id
		ORDER BY revenue DESC`)
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "CUST002", result.Rows[0]["customer_id"])
	assert.InDelta(t, 60.00, result.Rows[0]["revenue"], 0.001)
	assert.Equal(t, "CUST001", result.Rows[1]["customer_id"])
	assert.InDelta(t, 59.99, result.Rows[1]["revenue"], 0.001)
}

func TestExecuteTypedColumns(t *testing.T) {
	engine := testEngine(t)

	result, err := engine.Execute(context.Background(),
		"SELECT quantity, total_price FROM order_items WHERE order_item_id = 'OI001'")
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, int64(2), result.Rows[0]["quantity"])
	assert.InDelta(t, 40.00, result.Rows[0]["total_price"], 0.001)
}

func TestExecuteEmptyResultSet(t *testing.T) {
	engine := testEngine(t)

	result, err := engine.Execute(context.Background(),
		"SELECT * FROM customers WHERE customer_segment = 'Enterprise'")
	require.NoError(t, err)

	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
	assert.Contains(t, result.Columns, "customer_id")
}

func TestExecuteBadSQL(t *testing.T) {
	engine := testEngine(t)

	result, err := engine.Execute(context.Background(), "SELECT FROM WHERE")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "query failed")
}

func TestExecuteUnknownTable(t *testing.T) {
	engine := testEngine(t)

	_, err := engine.Execute(context.Background(), "SELECT * FROM invoices")
	require.Error(t, err)
}
