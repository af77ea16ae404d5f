package render

import "testing"

func TestFormatSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "select list and conditions",
			in:   "select id, name from customers where id > 1 and name like 'a%' order by name",
			want: "SELECT id,\n       name\nFROM customers\nWHERE id > 1\n  AND name LIKE 'a%'\nORDER BY name",
		},
		{
			name: "aggregate",
			in:   "SELECT COUNT(*) FROM customers",
			want: "SELECT COUNT(*)\nFROM customers",
		},
		{
			name: "join",
			in:   "select p.name, sum(oi.quantity) as units from products p left join order_items oi on oi.product_id = p.id group by p.name order by units desc limit 5",
			want: "SELECT p.name,\n       SUM(oi.quantity) AS units\nFROM products p\nLEFT JOIN order_items oi ON oi.product_id = p.id\nGROUP BY p.name\nORDER BY units DESC\nLIMIT 5",
		},
		{
			name: "subquery stays inline",
			in:   "select * from t where id in (select id from u where a = 1 and b = 2)",
			want: "SELECT *\nFROM t\nWHERE id IN (SELECT id FROM u WHERE a = 1 AND b = 2)",
		},
		{
			name: "between",
			in:   "select * from t where a between 1 and 5 and b >= 2.5",
			want: "SELECT *\nFROM t\nWHERE a BETWEEN 1 AND 5\n  AND b >= 2.5",
		},
		{
			name: "quoted text untouched",
			in:   "select 'from where select' as s, `order` from t",
			want: "SELECT 'from where select' AS s,\n       `order`\nFROM t",
		},
		{
			name: "left as a function",
			in:   "select left(name, 3) from t",
			want: "SELECT LEFT(name, 3)\nFROM t",
		},
		{
			name: "empty",
			in:   "  ",
			want: "",
		},
	}
	for _, tc := range tests {
		if got := FormatSQL(tc.in); got != tc.want {
			t.Fatalf("%s: FormatSQL() =\n%s\nwant\n%s", tc.name, got, tc.want)
		}
	}
}

func TestFormatSQLIsStable(t *testing.T) {
	in := "SELECT a, b FROM t WHERE x = 1 OR y = 2 GROUP BY a, b HAVING COUNT(*) > 1"
	once := FormatSQL(in)
	if twice := FormatSQL(once); twice != once {
		t.Fatalf("FormatSQL() not stable:\n%s\n---\n%s", once, twice)
	}
}
