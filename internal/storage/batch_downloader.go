package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchDownloader fetches a set of objects into a local directory with
// bounded parallelism.
type BatchDownloader struct {
	storage     ObjectStorage
	concurrency int
	destDir     string
}

// BatchObject names one object to fetch. When Path does not exist the
// Fallbacks are tried in order; the first that exists is downloaded.
type BatchObject struct {
	Path      string
	Fallbacks []string
}

// BatchResult contains the outcome of a batch download operation.
type BatchResult struct {
	// LocalPaths maps each requested Path to the downloaded file
	LocalPaths map[string]string
	// Errors maps each requested Path that could not be fetched to its error
	Errors map[string]error
	// Downloads counts successful downloads
	Downloads int
}

// ObjectError is a failure to fetch one object of a batch.
type ObjectError struct {
	Path string
	Err  error
}

func (e *ObjectError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// Err returns the first failure in request order as an *ObjectError, or nil.
func (r *BatchResult) Err(objects []BatchObject) error {
	for _, o := range objects {
		if err, ok := r.Errors[o.Path]; ok {
			return &ObjectError{Path: o.Path, Err: err}
		}
	}
	return nil
}

// NewBatchDownloader creates a new batch downloader.
// storage: the ObjectStorage implementation to download from
// concurrency: maximum number of parallel downloads
// destDir: directory downloaded files are written to
func NewBatchDownloader(storage ObjectStorage, concurrency int, destDir string) *BatchDownloader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchDownloader{
		storage:     storage,
		concurrency: concurrency,
		destDir:     destDir,
	}
}

// Download fetches every object in parallel. Per-object failures are
// reported in BatchResult.Errors; the returned error is only set when the
// batch itself could not run.
func (b *BatchDownloader) Download(ctx context.Context, objects []BatchObject) (*BatchResult, error) {
	result := &BatchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}
	if len(objects) == 0 {
		return result, nil
	}

	sem := semaphore.NewWeighted(int64(b.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, obj := range objects {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[obj.Path] = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(obj BatchObject) {
			defer sem.Release(1)
			defer wg.Done()

			local, err := b.fetch(ctx, obj)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[obj.Path] = err
				return
			}
			result.LocalPaths[obj.Path] = local
			result.Downloads++
		}(obj)
	}

	wg.Wait()

	return result, nil
}

func (b *BatchDownloader) fetch(ctx context.Context, obj BatchObject) (string, error) {
	candidates := append([]string{obj.Path}, obj.Fallbacks...)
	for _, candidate := range candidates {
		local := b.localPath(candidate)
		err := b.storage.Download(ctx, candidate, local)
		if err == nil {
			return local, nil
		}
		if !errors.Is(err, ErrObjectNotFound) {
			return "", fmt.Errorf("%s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("%s: %w", obj.Path, ErrObjectNotFound)
}

// localPath returns the destination for an object, keeping only its base name.
func (b *BatchDownloader) localPath(objectPath string) string {
	return filepath.Join(b.destDir, path.Base(objectPath))
}
