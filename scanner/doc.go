// Package scanner maps query results onto Go structs on top of the row stream.
//
// A struct opts in by implementing Scanner, which names one destination
// pointer per column. Rows are read through a stream.Stream, so columns are
// decoded once, in order, and columns without a destination are never decoded.
//
// # Basic Usage
//
// To use this package, implement the Scanner interface for your struct type:
//
//	type User struct {
//	    ID   int64
//	    Name string
//	    Age  int
//	}
//
//	func (u *User) ScanTargets(columns []string) []any {
//	    return scanner.ScanMap(columns, map[string]any{
//	        "id":   &u.ID,
//	        "name": &u.Name,
//	        "age":  &u.Age,
//	    })
//	}
//
// # Query Single Row
//
// Use QueryStruct to fetch and scan a single row:
//
//	user, err := scanner.QueryStruct[User](ctx, db,
//	    "SELECT id, name, age FROM users WHERE id = ?", 1)
//	if err != nil {
//	    return err
//	}
//
// # Query Multiple Rows
//
// Use QueryStructs to fetch and scan multiple rows:
//
//	users, err := scanner.QueryStructs[User](ctx, db,
//	    "SELECT id, name, age FROM users", nil)
//	if err != nil {
//	    return err
//	}
//
// When querying large result sets, pre-allocate slice capacity:
//
//	users, err := scanner.QueryStructs[User](ctx, db,
//	    "SELECT id, name, age FROM users", nil,
//	    scanner.WithExpectedSize(1000))
//
// # Streams and Transactions
//
// Mapping turns a Scanner type into a mapping.Mapping, so it can be used with
// txn.Query and every stream operation:
//
//	tx := txn.Begin(session)
//	defer tx.Close(ctx)
//	s, err := txn.Query(ctx, tx, scanner.Mapping[User](), "SELECT id, name, age FROM users")
//	if err != nil {
//	    return err
//	}
//	for u, err := range s.All(ctx) {
//	    ...
//	}
//
// # Destinations
//
// Supported destinations are pointers to int, int32, int64, bool, float32,
// float64, string, []byte, time.Time, decimal.Decimal, transport.Bits,
// transport.Interval and any, plus any sql.Scanner. NULL leaves the field
// untouched; sql.Scanner implementations such as sql.NullString receive nil.
//
// # Low-Level API
//
// ScanStruct and ScanStructs read from sql.Rows you already hold, and close
// them when done:
//
//	rows, err := db.QueryContext(ctx, "SELECT * FROM users")
//	if err != nil {
//	    return err
//	}
//	users, err := scanner.ScanStructs[User](ctx, rows)
package scanner
