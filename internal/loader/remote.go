package loader

import (
	"context"
	"errors"
	"path"

	"github.com/go-kit/log/level"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
	"github.com/arkilian/tpchq5/internal/storage"
	"github.com/arkilian/tpchq5/pkg/types"
)

// Fetch downloads the six tables stored under prefix into workDir, which
// can then be passed to LoadAll. Each table is fetched as <t>.tbl or, when
// that object is missing, <t>.tbl.sz.
func (l *Loader) Fetch(ctx context.Context, st storage.ObjectStorage, prefix, workDir string, concurrency int) error {
	objects := make([]storage.BatchObject, 0, len(types.Schemas()))
	for _, schema := range types.Schemas() {
		key := path.Join(prefix, schema.Name)
		objects = append(objects, storage.BatchObject{
			Path:      key + Extension,
			Fallbacks: []string{key + CompressedExtension},
		})
	}

	downloader := storage.NewBatchDownloader(st, concurrency, workDir)
	result, err := downloader.Download(ctx, objects)
	if err != nil {
		return engerrors.Wrap(engerrors.ErrCategoryIO, engerrors.CodeTableReadFailed, "fetch tables", err)
	}
	var objErr *storage.ObjectError
	if errors.As(result.Err(objects), &objErr) {
		code := engerrors.CodeTableReadFailed
		if errors.Is(objErr.Err, storage.ErrObjectNotFound) {
			code = engerrors.CodeTableNotFound
		}
		return engerrors.NewTableError(code, objErr.Path, objErr.Err)
	}

	level.Info(l.logger).Log("msg", "fetched tables", "prefix", prefix, "downloads", result.Downloads, "dir", workDir)
	return nil
}
