// Package prose renders the tabular dataset into deterministic natural
// language sentences, one template per entity kind, plus a summary
// paragraph with aggregate statistics.
package prose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/store"
)

var (
	// ErrLookupMiss is returned when a foreign key reference has no
	// matching row.
	ErrLookupMiss = errors.New("referenced row not found")
	// ErrZeroCost is returned when a product's cost price is zero and the
	// margin percentage is undefined.
	ErrZeroCost = errors.New("cost price is zero, margin percentage undefined")
	// ErrNoOrders is returned when the average order value is undefined.
	ErrNoOrders = errors.New("no orders, average order value undefined")
)

type Renderer struct {
	store *store.Store
}

func NewRenderer(s *store.Store) *Renderer {
	return &Renderer{store: s}
}

// RenderCustomer converts a customer row to an English sentence.
func RenderCustomer(row store.Row) string {
	return fmt.Sprintf(
		"%s %s (ID: %s) is a %s customer who joined on %s. They are located in %s, %s, %s and can be reached at %s.",
		row.Text("first_name"), row.Text("last_name"), row.Text("customer_id"),
		row.Text("customer_segment"), row.Text("join_date"),
		row.Text("city"), row.Text("state"), row.Text("country"), row.Text("email"),
	)
}

// RenderProduct converts a product row to an English sentence. The margin
// percentage divides by cost price, so a zero cost price is an error.
func RenderProduct(row store.Row) (string, error) {
	unitPrice, _ := row.Float("unit_price")
	costPrice, _ := row.Float("cost_price")
	if costPrice == 0 {
		return "", fmt.Errorf("%w: product %s", ErrZeroCost, row.Text("product_id"))
	}

	margin := unitPrice - costPrice
	marginPct := margin / costPrice * 100

	return fmt.Sprintf(
		"The product '%s' (ID: %s) is a %s item in the %s category, manufactured by %s. "+
			"It is priced at $%.2f with a cost of $%.2f, yielding a margin of $%.2f (%.1f%%). "+
			"This product is supplied by %s.",
		row.Text("product_name"), row.Text("product_id"), row.Text("subcategory"),
		row.Text("category"), row.Text("brand"),
		unitPrice, costPrice, margin, marginPct,
		row.Text("supplier_id"),
	), nil
}

// RenderSupplier converts a supplier row to an English sentence.
func RenderSupplier(row store.Row) string {
	return fmt.Sprintf(
		"%s (ID: %s) is a supplier based in %s. They have a lead time of %s days and a reliability rating of %s/5.0. Contact them at %s.",
		row.Text("supplier_name"), row.Text("supplier_id"), row.Text("country"),
		row.Text("lead_time_days"), row.Text("reliability_rating"), row.Text("contact_email"),
	)
}

// RenderOrder converts an order row to an English sentence, resolving the
// customer reference. The discount clause appears only for a positive
// discount.
func RenderOrder(row store.Row, customers *store.Table) (string, error) {
	customer, ok := firstMatch(customers, "customer_id", row.Text("customer_id"))
	if !ok {
		return "", fmt.Errorf("%w: customer %s for order %s",
			ErrLookupMiss, row.Text("customer_id"), row.Text("order_id"))
	}
	customerName := customer.Text("first_name") + " " + customer.Text("last_name")

	discountClause := ""
	if discount, ok := row.Float("discount_applied"); ok && discount > 0 {
		discountClause = fmt.Sprintf(" with a discount of $%.2f applied", discount)
	}

	return fmt.Sprintf(
		"Order %s was placed by %s (%s) on %s. The order uses %s shipping to %s and was paid via %s. Current status: %s%s.",
		row.Text("order_id"), customerName, row.Text("customer_id"), row.Text("order_date"),
		row.Text("shipping_method"), row.Text("shipping_address_city"), row.Text("payment_method"),
		row.Text("order_status"), discountClause,
	), nil
}

// RenderOrderItem converts an order line item to an English sentence,
// resolving the product and, through the order, the purchasing customer.
func RenderOrderItem(row store.Row, products, orders, customers *store.Table) (string, error) {
	product, ok := firstMatch(products, "product_id", row.Text("product_id"))
	if !ok {
		return "", fmt.Errorf("%w: product %s", ErrLookupMiss, row.Text("product_id"))
	}
	order, ok := firstMatch(orders, "order_id", row.Text("order_id"))
	if !ok {
		return "", fmt.Errorf("%w: order %s", ErrLookupMiss, row.Text("order_id"))
	}
	customer, ok := firstMatch(customers, "customer_id", order.Text("customer_id"))
	if !ok {
		return "", fmt.Errorf("%w: customer %s", ErrLookupMiss, order.Text("customer_id"))
	}

	unitPrice, _ := row.Float("unit_price_at_sale")
	total, _ := row.Float("total_price")

	return fmt.Sprintf(
		"In order %s, %s %s purchased %s unit(s) of '%s' at $%.2f each, totaling $%.2f.",
		row.Text("order_id"), customer.Text("first_name"), customer.Text("last_name"),
		row.Text("quantity"), product.Text("product_name"), unitPrice, total,
	), nil
}

// RenderAll renders every table into its prose section. Sections appear in
// a fixed order regardless of row counts; rows keep their on-disk order.
func (r *Renderer) RenderAll() (string, error) {
	customers, err := r.store.LoadTable("customers")
	if err != nil {
		return "", err
	}
	suppliers, err := r.store.LoadTable("suppliers")
	if err != nil {
		return "", err
	}
	products, err := r.store.LoadTable("products")
	if err != nil {
		return "", err
	}
	orders, err := r.store.LoadTable("orders")
	if err != nil {
		return "", err
	}
	orderItems, err := r.store.LoadTable("order_items")
	if err != nil {
		return "", err
	}

	var customerSentences []string
	for _, row := range customers.Rows {
		customerSentences = append(customerSentences, RenderCustomer(row))
	}

	var supplierSentences []string
	for _, row := range suppliers.Rows {
		supplierSentences = append(supplierSentences, RenderSupplier(row))
	}

	var productSentences []string
	for _, row := range products.Rows {
		sentence, err := RenderProduct(row)
		if err != nil {
			return "", err
		}
		productSentences = append(productSentences, sentence)
	}

	var orderSentences []string
	for _, row := range orders.Rows {
		sentence, err := RenderOrder(row, customers)
		if err != nil {
			return "", err
		}
		orderSentences = append(orderSentences, sentence)
	}

	var itemSentences []string
	for _, row := range orderItems.Rows {
		sentence, err := RenderOrderItem(row, products, orders, customers)
		if err != nil {
			return "", err
		}
		itemSentences = append(itemSentences, sentence)
	}

	sections := []string{
		"## Customers\n\n" + strings.Join(customerSentences, "\n\n"),
		"## Suppliers\n\n" + strings.Join(supplierSentences, "\n\n"),
		"## Products\n\n" + strings.Join(productSentences, "\n\n"),
		"## Orders\n\n" + strings.Join(orderSentences, "\n\n"),
		"## Order Line Items\n\n" + strings.Join(itemSentences, "\n\n"),
	}

	return strings.Join(sections, "\n\n---\n\n"), nil
}

// RenderSummary produces the aggregate statistics paragraph: revenue,
// order counts, the top selling product by revenue, and the customer
// segment distribution in encounter order.
func (r *Renderer) RenderSummary() (string, error) {
	customers, err := r.store.LoadTable("customers")
	if err != nil {
		return "", err
	}
	suppliers, err := r.store.LoadTable("suppliers")
	if err != nil {
		return "", err
	}
	products, err := r.store.LoadTable("products")
	if err != nil {
		return "", err
	}
	orders, err := r.store.LoadTable("orders")
	if err != nil {
		return "", err
	}
	orderItems, err := r.store.LoadTable("order_items")
	if err != nil {
		return "", err
	}

	if len(orders.Rows) == 0 {
		return "", ErrNoOrders
	}

	var totalRevenue float64
	for _, row := range orderItems.Rows {
		total, _ := row.Float("total_price")
		totalRevenue += total
	}
	avgOrderValue := totalRevenue / float64(len(orders.Rows))

	// Revenue per product in line-item encounter order; ties keep the
	// first grouping key seen.
	revenueByProduct := map[string]float64{}
	var productOrder []string
	for _, row := range orderItems.Rows {
		id := row.Text("product_id")
		if _, seen := revenueByProduct[id]; !seen {
			productOrder = append(productOrder, id)
		}
		total, _ := row.Float("total_price")
		revenueByProduct[id] += total
	}
	topProductID := ""
	topRevenue := -1.0
	for _, id := range productOrder {
		if revenueByProduct[id] > topRevenue {
			topProductID = id
			topRevenue = revenueByProduct[id]
		}
	}
	topProductName := topProductID
	if product, ok := firstMatch(products, "product_id", topProductID); ok {
		topProductName = product.Text("product_name")
	}

	segmentCounts := map[string]int{}
	var segmentOrder []string
	stateSet := map[string]struct{}{}
	for _, row := range customers.Rows {
		segment := row.Text("customer_segment")
		if _, seen := segmentCounts[segment]; !seen {
			segmentOrder = append(segmentOrder, segment)
		}
		segmentCounts[segment]++
		stateSet[row.Text("state")] = struct{}{}
	}
	segmentParts := make([]string, 0, len(segmentOrder))
	for _, segment := range segmentOrder {
		segmentParts = append(segmentParts, fmt.Sprintf("%s: %d", segment, segmentCounts[segment]))
	}

	return fmt.Sprintf(`
## Data Summary

The e-commerce database contains:
- %d customers across %d states
- %d products from %d suppliers
- %d orders with %d line items
- Total revenue: $%s
- Average order value: $%s

Customer segments: %s

The best-selling product by revenue is "%s".
`,
		len(customers.Rows), len(stateSet),
		len(products.Rows), len(suppliers.Rows),
		len(orders.Rows), len(orderItems.Rows),
		commaFormat(totalRevenue), commaFormat(avgOrderValue),
		strings.Join(segmentParts, ", "),
		topProductName,
	), nil
}

func firstMatch(table *store.Table, col, value string) (store.Row, bool) {
	for _, row := range table.Rows {
		if row.Text(col) == value {
			return row, true
		}
	}
	return nil, false
}

// commaFormat renders a monetary amount with two decimals and thousands
// separators in the integer part.
func commaFormat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]

	neg := false
	if strings.HasPrefix(intPart, "-") {
		neg = true
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
