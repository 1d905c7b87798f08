package experiment

// Question is one catalogue entry. The expected answer is human-written
// and advisory only; nothing checks model output against it.
type Question struct {
	Question   string `json:"question"`
	Expected   string `json:"expected"`
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
}

// catalogue covers three difficulty tiers: simple lookups, filtering and
// aggregation, and multi-join or inference questions.
var catalogue = []Question{
	// Easy: simple lookups and counts.
	{
		Question:   "What is the most expensive product in the catalog?",
		Expected:   "The Smart Watch Fitness (P010) at $199.99",
		Type:       "lookup",
		Difficulty: "easy",
	},
	{
		Question:   "Which supplier has the best reliability rating?",
		Expected:   "TechWorld Distribution (SUP001) with a rating of 4.8",
		Type:       "lookup",
		Difficulty: "easy",
	},
	{
		Question:   "How many customers are in the VIP segment?",
		Expected:   "2 customers (Emily Nakamura and Robert Kim)",
		Type:       "count",
		Difficulty: "easy",
	},
	{
		Question:   "What is the cheapest product?",
		Expected:   "Organic Green Tea (50 bags) at $12.99",
		Type:       "lookup",
		Difficulty: "easy",
	},
	{
		Question:   "How many products are in the catalog?",
		Expected:   "12 products",
		Type:       "count",
		Difficulty: "easy",
	},
	// Medium: filtering and simple aggregation.
	{
		Question:   "How many orders are still pending or processing?",
		Expected:   "4 orders (2 Pending, 2 Processing)",
		Type:       "filtering",
		Difficulty: "medium",
	},
	{
		Question:   "What is the total revenue from all orders?",
		Expected:   "The total revenue is approximately $2,544.54",
		Type:       "aggregation",
		Difficulty: "medium",
	},
	{
		Question:   "How many products are in the Electronics category?",
		Expected:   "4 products",
		Type:       "filtering",
		Difficulty: "medium",
	},
	{
		Question:   "What payment method is used most frequently?",
		Expected:   "Credit Card (8 orders)",
		Type:       "aggregation",
		Difficulty: "medium",
	},
	{
		Question:   "Which customer has placed the most orders?",
		Expected:   "Multiple customers tied at 2 orders each",
		Type:       "aggregation",
		Difficulty: "medium",
	},
	// Hard: multi-table joins and calculations.
	{
		Question:   "Which product category has generated the most revenue?",
		Expected:   "Electronics (~$1,109.88)",
		Type:       "aggregation_with_join",
		Difficulty: "hard",
	},
	{
		Question:   "What is the average profit margin percentage across all products?",
		Expected:   "~119% average margin",
		Type:       "calculation",
		Difficulty: "hard",
	},
	{
		Question:   "What products did customer Emily Nakamura purchase across all her orders?",
		Expected:   "Smart Watch Fitness, Wireless Mouse Ergonomic, Wireless Bluetooth Headphones",
		Type:       "multi_join",
		Difficulty: "hard",
	},
	{
		Question:   "Which supplier's products have generated the most total revenue?",
		Expected:   "TechWorld Distribution (SUP001)",
		Type:       "multi_join",
		Difficulty: "hard",
	},
	{
		Question:   "What is the average order value for VIP customers vs Standard customers?",
		Expected:   "VIP customers have higher average order values",
		Type:       "complex_aggregation",
		Difficulty: "hard",
	},
	// Hard: inference and pattern recognition.
	{
		Question:   "What customer attributes are most indicative of higher spending?",
		Expected:   "VIP segment customers and those in certain geographic regions tend to spend more",
		Type:       "inference",
		Difficulty: "hard",
	},
	{
		Question:   "Which product characteristics correlate with higher sales volume?",
		Expected:   "Lower price points and certain categories like Electronics tend to have higher volume",
		Type:       "inference",
		Difficulty: "hard",
	},
	{
		Question:   "Are there any suppliers whose products appear to be underperforming?",
		Expected:   "Analysis of supplier product sales vs catalog presence",
		Type:       "inference",
		Difficulty: "hard",
	},
	{
		Question:   "What patterns do you notice in shipping method preferences across customer segments?",
		Expected:   "VIP customers may prefer express shipping; patterns vary by segment",
		Type:       "inference",
		Difficulty: "hard",
	},
	{
		Question:   "Based on the data, which product categories might benefit from expanding inventory?",
		Expected:   "Categories with high sales velocity and good margins",
		Type:       "inference",
		Difficulty: "hard",
	},
	{
		Question:   "What insights can you draw about customer loyalty from repeat purchase patterns?",
		Expected:   "Analysis of customers with multiple orders and their characteristics",
		Type:       "inference",
		Difficulty: "hard",
	},
}

// Catalogue returns a copy of the built-in research questions in order.
func Catalogue() []Question {
	out := make([]Question, len(catalogue))
	copy(out, catalogue)
	return out
}
