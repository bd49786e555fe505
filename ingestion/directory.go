// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DirectoryOptions controls a directory walk.
type DirectoryOptions struct {
	// Recursive descends into subdirectories.
	Recursive bool
}

// FileFailure records a file that could not be indexed during a
// directory walk.
type FileFailure struct {
	Path string
	Err  error
}

// DirectoryResult aggregates the outcome of a directory walk.
type DirectoryResult struct {
	// TotalFiles is the number of supported files found.
	TotalFiles int

	// SuccessfulFiles is the number of files indexed without a fatal error.
	// A file whose batches partially failed still counts; those failures
	// live in the file's own IndexingResult.
	SuccessfulFiles int

	// TotalChunksIndexed sums ChunksIndexed across successful files.
	TotalChunksIndexed int

	// FailedFiles lists the files that could not be indexed at all.
	FailedFiles []FileFailure
}

// IndexDirectory indexes every supported file under dir, filtering by the
// extractor set's extensions. One failing file never stops the walk; its
// error is recorded and the walk continues. Files are distributed over the
// worker pool, so with WithWorkers(1) they are indexed sequentially in
// walk order. A missing directory yields ErrNotFound. On cancellation the
// partial result is returned together with ctx.Err().
func (p *Pipeline) IndexDirectory(ctx context.Context, dir string, opts DirectoryOptions) (*DirectoryResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	files, err := p.collectFiles(dir, opts.Recursive)
	if err != nil {
		return nil, err
	}

	p.logger.Info("indexing directory",
		"dir", dir,
		"files", len(files),
		"recursive", opts.Recursive,
		"workers", p.workers)

	result := &DirectoryResult{TotalFiles: len(files)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			fileResult, err := p.IndexFile(ctx, path, nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warn("failed to index file", "path", path, "err", err)
				result.FailedFiles = append(result.FailedFiles, FileFailure{Path: path, Err: err})
				return
			}
			result.SuccessfulFiles++
			result.TotalChunksIndexed += fileResult.ChunksIndexed
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.FailedFiles = append(result.FailedFiles, FileFailure{Path: path, Err: submitErr})
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	p.logger.Info("directory indexing complete",
		"dir", dir,
		"total_files", result.TotalFiles,
		"successful_files", result.SuccessfulFiles,
		"failed_files", len(result.FailedFiles),
		"chunks_indexed", result.TotalChunksIndexed)
	return result, nil
}

// collectFiles lists the supported files under dir in walk order.
func (p *Pipeline) collectFiles(dir string, recursive bool) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if p.extractors.Supports(filepath.Ext(entry.Name())) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if p.extractors.Supports(filepath.Ext(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", dir, err)
	}
	return files, nil
}
