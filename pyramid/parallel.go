package pyramid

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/wsilib/go-slidetile/buffer"
	"github.com/wsilib/go-slidetile/tile"
)

// ParallelConfig configures concurrent level building.
type ParallelConfig struct {
	// Workers is the number of goroutines. 0 means runtime.GOMAXPROCS(0).
	Workers int

	// Grain is the minimum parent tiles per worker before a level is
	// built concurrently; smaller levels run sequentially.
	Grain int
}

// DefaultParallelConfig returns the default configuration.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{Workers: 0, Grain: 1}
}

var (
	parallelConfig   = DefaultParallelConfig()
	parallelConfigMu sync.RWMutex
)

// SetParallelConfig sets the package-wide parallel configuration.
func SetParallelConfig(config ParallelConfig) {
	parallelConfigMu.Lock()
	defer parallelConfigMu.Unlock()
	parallelConfig = config
}

// GetParallelConfig returns the current parallel configuration.
func GetParallelConfig() ParallelConfig {
	parallelConfigMu.RLock()
	defer parallelConfigMu.RUnlock()
	return parallelConfig
}

func effectiveWorkers(config ParallelConfig) int {
	if config.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return config.Workers
}

// parallelForWithError runs fn(i) for i in [0, n), split across the
// configured workers. Returns the first error encountered; which error
// wins is not defined when several workers fail.
func parallelForWithError(n int, fn func(i int) error) error {
	config := GetParallelConfig()
	workers := effectiveWorkers(config)

	if n <= config.Grain*workers || workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	chunk := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if err := fn(i); err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
			}
		}(start, end)
	}

	wg.Wait()
	return firstErr
}

// BuildLevelParallel is BuildLevel with the parent tiles built
// concurrently. Each parent reads a disjoint group of child tiles and
// writes only its own buffer, so no locking is needed beyond the
// worker join; results are identical to the sequential build.
func BuildLevelParallel(tiles [][]*buffer.Buffer, factor, channels int, pool *buffer.Pool) ([][]*buffer.Buffer, error) {
	if factor != 2 && factor != 4 {
		return nil, fmt.Errorf("%w: got %d", ErrBadFactor, factor)
	}
	if channels != 3 && channels != 4 {
		return nil, tile.ErrUnsupportedChannels
	}
	rows := len(tiles)
	if rows == 0 {
		return nil, ErrEmptyExtent
	}
	cols := len(tiles[0])
	if cols == 0 {
		return nil, ErrEmptyExtent
	}

	need := tile.Area * channels
	parentRows := (rows + factor - 1) / factor
	parentCols := (cols + factor - 1) / factor
	parents := make([][]*buffer.Buffer, parentRows)
	for py := range parents {
		parents[py] = make([]*buffer.Buffer, parentCols)
	}

	err := parallelForWithError(parentRows*parentCols, func(i int) error {
		py, px := i/parentCols, i%parentCols
		parent, err := allocParent(pool, need)
		if err != nil {
			return err
		}
		children := make([][]*buffer.Buffer, factor)
		for subY := range children {
			children[subY] = make([]*buffer.Buffer, factor)
			ty := py*factor + subY
			if ty >= rows {
				continue
			}
			for subX := range children[subY] {
				tx := px*factor + subX
				if tx >= len(tiles[ty]) {
					continue
				}
				children[subY][subX] = tiles[ty][tx]
			}
		}
		if err := ComposeParent(children, parent, factor, channels); err != nil {
			return err
		}
		parents[py][px] = parent
		return nil
	})
	if err != nil {
		// Return buffers from parents that did complete.
		if pool != nil {
			for _, row := range parents {
				for _, p := range row {
					pool.Put(p)
				}
			}
		}
		return nil, err
	}
	return parents, nil
}
