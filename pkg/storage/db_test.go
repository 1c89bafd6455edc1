package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

func openBackends(t *testing.T) map[string]Database {
	t.Helper()

	ldb, err := NewLevelDB(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("Failed to open leveldb: %v", err)
	}
	t.Cleanup(func() { ldb.Close() })

	return map[string]Database{
		"memdb":   NewMemDB(),
		"leveldb": ldb,
	}
}

func TestDatabaseGetPut(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := db.Get([]byte("missing")); err != ErrNotFound {
				t.Fatalf("Expected ErrNotFound, got %v", err)
			}

			if err := db.Put([]byte("k"), []byte("v1")); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := db.Get([]byte("k"))
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !bytes.Equal(got, []byte("v1")) {
				t.Errorf("Expected v1, got %s", got)
			}

			ok, err := db.Has([]byte("k"))
			if err != nil || !ok {
				t.Errorf("Expected key to exist, got %v, %v", ok, err)
			}

			if err := db.Delete([]byte("k")); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if ok, _ := db.Has([]byte("k")); ok {
				t.Error("Key should be gone after delete")
			}
		})
	}
}

func TestDatabaseBatch(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Put([]byte("old"), []byte("x")); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			batch := db.NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Delete([]byte("old"))

			if batch.Len() != 3 {
				t.Errorf("Expected 3 batched ops, got %d", batch.Len())
			}

			// Nothing is visible before Write
			if ok, _ := db.Has([]byte("a")); ok {
				t.Error("Batched write visible before Write")
			}

			if err := batch.Write(); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			for key, want := range map[string]string{"a": "1", "b": "2"} {
				got, err := db.Get([]byte(key))
				if err != nil || string(got) != want {
					t.Errorf("Expected %s=%s, got %s (%v)", key, want, got, err)
				}
			}
			if ok, _ := db.Has([]byte("old")); ok {
				t.Error("Batched delete not applied")
			}
		})
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("abc")
	db.Put([]byte("k"), value)
	value[0] = 'z'

	got, _ := db.Get([]byte("k"))
	if string(got) != "abc" {
		t.Errorf("MemDB should copy stored values, got %s", got)
	}

	got[1] = 'z'
	again, _ := db.Get([]byte("k"))
	if string(again) != "abc" {
		t.Errorf("MemDB should copy returned values, got %s", again)
	}
}

func TestMemDBClosed(t *testing.T) {
	db := NewMemDB()
	db.Close()

	if err := db.Put([]byte("k"), []byte("v")); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := db.Get([]byte("k")); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestDatabaseIterate(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"pool/b", "pool/a", "nonce/a", "pool/c"} {
				if err := db.Put([]byte(k), []byte(k)); err != nil {
					t.Fatalf("Put failed: %v", err)
				}
			}

			var seen []string
			err := db.Iterate([]byte("pool/"), func(key, value []byte) bool {
				if !bytes.Equal(key, value) {
					t.Errorf("Value mismatch for %s: %s", key, value)
				}
				seen = append(seen, string(key))
				return true
			})
			if err != nil {
				t.Fatalf("Iterate failed: %v", err)
			}
			if len(seen) != 3 || seen[0] != "pool/a" || seen[2] != "pool/c" {
				t.Errorf("Expected pool rows in order, got %v", seen)
			}

			count := 0
			db.Iterate([]byte("pool/"), func(key, value []byte) bool {
				count++
				return false
			})
			if count != 1 {
				t.Errorf("Expected iteration to stop after one row, got %d", count)
			}
		})
	}
}
