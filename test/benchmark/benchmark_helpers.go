package benchmark

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/arkilian/tpchq5/internal/storage"
	"github.com/arkilian/tpchq5/internal/tpchtest"
	"github.com/arkilian/tpchq5/pkg/types"
)

// Dataset sizes shared by the benchmarks.
const (
	benchCustomers = 1500
	benchSuppliers = 100
	benchOrders    = 15000
	benchLineItems = 60000
)

// PrefixedStorage wraps an ObjectStorage and prepends a prefix to all object paths.
type PrefixedStorage struct {
	inner  storage.ObjectStorage
	prefix string
}

func (s *PrefixedStorage) Upload(ctx context.Context, localPath, objectPath string) error {
	return s.inner.Upload(ctx, localPath, path.Join(s.prefix, objectPath))
}

func (s *PrefixedStorage) Download(ctx context.Context, objectPath, localPath string) error {
	return s.inner.Download(ctx, path.Join(s.prefix, objectPath), localPath)
}

func (s *PrefixedStorage) Exists(ctx context.Context, objectPath string) (bool, error) {
	return s.inner.Exists(ctx, path.Join(s.prefix, objectPath))
}

// getBenchmarkStorage returns the storage tables are staged in.
// TPCHQ5_BENCH_STORAGE=s3 (from .env or the environment) selects S3 using
// the TPCHQ5_S3_* settings with a per-run prefix; otherwise a temporary
// local directory is used.
func getBenchmarkStorage(b *testing.B, benchName string) (storage.ObjectStorage, func()) {
	// .env lives at the project root, two levels up from test/benchmark
	_ = godotenv.Load("../../.env")

	if os.Getenv("TPCHQ5_BENCH_STORAGE") == "s3" {
		bucket := os.Getenv("TPCHQ5_S3_BUCKET")
		if bucket == "" {
			b.Fatal("TPCHQ5_S3_BUCKET is required for s3 benchmark")
		}

		cfg := storage.DefaultS3Config()
		if v := os.Getenv("TPCHQ5_S3_REGION"); v != "" {
			cfg.Region = v
		}
		cfg.Endpoint = os.Getenv("TPCHQ5_S3_ENDPOINT")
		cfg.UsePathStyle = os.Getenv("TPCHQ5_S3_USE_PATH_STYLE") == "true"

		st, err := storage.NewS3Storage(context.Background(), bucket, cfg)
		if err != nil {
			b.Fatalf("Failed to initialize S3 storage: %v", err)
		}

		prefix := fmt.Sprintf("bench/%s/%d", benchName, time.Now().UnixNano())
		b.Logf("Running benchmark against S3 Bucket: %s Prefix: %s", bucket, prefix)

		// Objects are left in place for inspection.
		return &PrefixedStorage{inner: st, prefix: prefix}, func() {}
	}

	dir, err := os.MkdirTemp("", "tpchq5-bench-"+benchName+"-*")
	if err != nil {
		b.Fatal(err)
	}
	st, err := storage.NewLocalStorage(filepath.Join(dir, "storage"))
	if err != nil {
		b.Fatal(err)
	}
	return st, func() { os.RemoveAll(dir) }
}

// writeBenchDataset writes the standard benchmark dataset to a temporary
// directory.
func writeBenchDataset(b *testing.B) (string, func()) {
	dir, err := os.MkdirTemp("", "tpchq5-bench-tables-*")
	if err != nil {
		b.Fatal(err)
	}
	ds := tpchtest.Random(42, benchCustomers, benchSuppliers, benchOrders, benchLineItems)
	if err := ds.WriteDir(dir); err != nil {
		os.RemoveAll(dir)
		b.Fatal(err)
	}
	return dir, func() { os.RemoveAll(dir) }
}

// uploadTables copies every table file in dir to st under prefix.
func uploadTables(b *testing.B, st storage.ObjectStorage, dir, prefix string) {
	ctx := context.Background()
	for _, schema := range types.Schemas() {
		name := schema.Name + ".tbl"
		if err := st.Upload(ctx, filepath.Join(dir, name), path.Join(prefix, name)); err != nil {
			b.Fatalf("Failed to upload %s: %v", name, err)
		}
	}
}
