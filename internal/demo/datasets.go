// Package demo creates and fills the demo schemas so questions can be tried
// without importing data first.
package demo

import (
	"embed"
	"fmt"
	"slices"
	"strings"
)

//go:embed sql/*.sql
var ddlFS embed.FS

// Table describes one demo table. Rows receives the dataset size and returns
// rows in Columns order.
type Table struct {
	Name    string
	Columns []string
	Rows    func(g *Generator, size int) [][]any
}

type Dataset struct {
	Schema string
	Tables []Table
}

// DDL returns the CREATE TABLE statements of the dataset.
func (d Dataset) DDL() (string, error) {
	raw, err := ddlFS.ReadFile("sql/" + d.Schema + ".sql")
	if err != nil {
		return "", fmt.Errorf("read ddl of %q: %w", d.Schema, err)
	}
	return string(raw), nil
}

// Schemas lists the demo schema names.
func Schemas() []string {
	names := make([]string, 0, len(datasets))
	for _, dataset := range datasets {
		names = append(names, dataset.Schema)
	}
	slices.Sort(names)
	return names
}

func DatasetFor(schemaName string) (Dataset, error) {
	for _, dataset := range datasets {
		if dataset.Schema == schemaName {
			return dataset, nil
		}
	}
	return Dataset{}, fmt.Errorf("no demo dataset for schema %q (available: %s)", schemaName, strings.Join(Schemas(), ", "))
}

func productCount(size int) int { return max(size/4, 5) }
func orderCount(size int) int   { return size * 2 }
func accountCount(size int) int { return max(size/5, 3) }

var datasets = []Dataset{
	{
		Schema: "e_commerce",
		Tables: []Table{
			{
				Name:    "customers",
				Columns: []string{"id", "name", "email", "country", "created_at"},
				Rows: func(g *Generator, size int) [][]any {
					rows := make([][]any, 0, size)
					for i := 1; i <= size; i++ {
						name := g.PersonName()
						email := fmt.Sprintf("%s.%d@example.com", strings.ToLower(strings.ReplaceAll(name, " ", ".")), i)
						rows = append(rows, []any{int64(i), name, email, g.Pick(countries), g.Time(365)})
					}
					return rows
				},
			},
			{
				Name:    "products",
				Columns: []string{"id", "name", "category", "price"},
				Rows: func(g *Generator, size int) [][]any {
					categories := []string{"books", "electronics", "garden", "kitchen", "toys"}
					adjectives := []string{"Classic", "Compact", "Deluxe", "Eco", "Smart", "Ultra"}
					nouns := []string{"Lamp", "Kettle", "Speaker", "Planter", "Notebook", "Puzzle", "Backpack"}
					n := productCount(size)
					rows := make([][]any, 0, n)
					for i := 1; i <= n; i++ {
						rows = append(rows, []any{int64(i), g.Pick(adjectives) + " " + g.Pick(nouns), g.Pick(categories), g.Amount(4, 400)})
					}
					return rows
				},
			},
			{
				Name:    "orders",
				Columns: []string{"id", "customer_id", "status", "ordered_at"},
				Rows: func(g *Generator, size int) [][]any {
					statuses := []string{"pending", "shipped", "delivered", "delivered", "delivered", "cancelled"}
					n := orderCount(size)
					rows := make([][]any, 0, n)
					for i := 1; i <= n; i++ {
						rows = append(rows, []any{int64(i), g.ID(size), g.Pick(statuses), g.Time(365)})
					}
					return rows
				},
			},
			{
				Name:    "order_items",
				Columns: []string{"id", "order_id", "product_id", "quantity", "unit_price"},
				Rows: func(g *Generator, size int) [][]any {
					n := orderCount(size) * 2
					rows := make([][]any, 0, n)
					for i := 1; i <= n; i++ {
						rows = append(rows, []any{int64(i), g.ID(orderCount(size)), g.ID(productCount(size)), g.Between(1, 5), g.Amount(4, 400)})
					}
					return rows
				},
			},
		},
	},
	{
		Schema: "enterprise_saas",
		Tables: []Table{
			{
				Name:    "accounts",
				Columns: []string{"id", "name", "industry", "created_at"},
				Rows: func(g *Generator, size int) [][]any {
					prefixes := []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark", "Wayne", "Wonka"}
					suffixes := []string{"Corp", "Labs", "Systems", "Holdings", "Group"}
					industries := []string{"finance", "healthcare", "retail", "software", "logistics"}
					n := accountCount(size)
					rows := make([][]any, 0, n)
					for i := 1; i <= n; i++ {
						rows = append(rows, []any{int64(i), fmt.Sprintf("%s %s %d", g.Pick(prefixes), g.Pick(suffixes), i), g.Pick(industries), g.Time(730)})
					}
					return rows
				},
			},
			{
				Name:    "users",
				Columns: []string{"id", "account_id", "email", "role", "last_login_at"},
				Rows: func(g *Generator, size int) [][]any {
					roles := []string{"admin", "member", "member", "member", "viewer"}
					rows := make([][]any, 0, size)
					for i := 1; i <= size; i++ {
						var lastLogin any
						if g.Bool(85) {
							lastLogin = g.Time(365)
						}
						rows = append(rows, []any{int64(i), g.ID(accountCount(size)), fmt.Sprintf("user%d@example.com", i), g.Pick(roles), lastLogin})
					}
					return rows
				},
			},
			{
				Name:    "subscriptions",
				Columns: []string{"id", "account_id", "plan", "seats", "monthly_price", "status", "started_on"},
				Rows: func(g *Generator, size int) [][]any {
					plans := map[string]float64{"starter": 29, "team": 99, "business": 299, "enterprise": 999}
					names := []string{"starter", "team", "business", "enterprise"}
					statuses := []string{"active", "active", "active", "trialing", "cancelled"}
					n := accountCount(size)
					rows := make([][]any, 0, n)
					for i := 1; i <= n; i++ {
						plan := g.Pick(names)
						rows = append(rows, []any{int64(i), int64(i), plan, g.Between(1, 200), plans[plan], g.Pick(statuses), g.Date(730)})
					}
					return rows
				},
			},
			{
				Name:    "invoices",
				Columns: []string{"id", "account_id", "amount", "issued_on", "paid"},
				Rows: func(g *Generator, size int) [][]any {
					n := accountCount(size) * 6
					rows := make([][]any, 0, n)
					for i := 1; i <= n; i++ {
						rows = append(rows, []any{int64(i), g.ID(accountCount(size)), g.Amount(29, 20000), g.Date(365), g.Bool(90)})
					}
					return rows
				},
			},
		},
	},
	{
		Schema: "analytics",
		Tables: []Table{
			{
				Name:    "sessions",
				Columns: []string{"id", "user_id", "device", "country", "started_at", "duration_seconds"},
				Rows: func(g *Generator, size int) [][]any {
					rows := make([][]any, 0, size)
					for i := 1; i <= size; i++ {
						rows = append(rows, []any{int64(i), g.UserID(200), g.Pick(devices), g.Pick(countries), g.Time(90), g.Between(5, 3600)})
					}
					return rows
				},
			},
			{
				Name:    "events",
				Columns: []string{"id", "session_id", "user_id", "event_type", "amount", "occurred_at"},
				Rows: func(g *Generator, size int) [][]any {
					n := size * 5
					rows := make([][]any, 0, n)
					for i := 1; i <= n; i++ {
						eventType := g.EventType()
						rows = append(rows, []any{int64(i), g.ID(size), g.UserID(200), eventType, g.EventAmount(eventType), g.Time(90)})
					}
					return rows
				},
			},
		},
	},
}
