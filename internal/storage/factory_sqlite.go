//go:build sqlite

package storage

// DefaultStoreKind prefers the durable backend when it is compiled in.
func DefaultStoreKind() string {
	return KindSQLite
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
