package pyramid

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/wsilib/go-slidetile/buffer"
	"github.com/wsilib/go-slidetile/tile"
)

func randomTileBuffer(rng *rand.Rand, channels int) *buffer.Buffer {
	p := make([]byte, tile.Area*channels)
	rng.Read(p)
	return buffer.CopyOf(p)
}

func TestComputeExtentSingleTile(t *testing.T) {
	ext, err := ComputeExtent(200, 100, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Layers) != 1 {
		t.Fatalf("layers = %d, want 1", len(ext.Layers))
	}
	if ext.Width != 200 || ext.Height != 100 {
		t.Errorf("extent = %dx%d, want 200x100", ext.Width, ext.Height)
	}
	l := ext.Layers[0]
	if l.XTiles != 1 || l.YTiles != 1 || l.Scale != 1 || l.Downsample != 1 {
		t.Errorf("layer = %+v", l)
	}
}

func TestComputeExtentLayerStack(t *testing.T) {
	// 1024x512 base at factor 2: 1024 -> 512 -> 256, three layers.
	ext, err := ComputeExtent(1024, 512, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Layers) != 3 {
		t.Fatalf("layers = %d, want 3", len(ext.Layers))
	}
	if ext.Width != 256 || ext.Height != 128 {
		t.Errorf("top extent = %dx%d, want 256x128", ext.Width, ext.Height)
	}

	want := []LayerExtent{
		{XTiles: 1, YTiles: 1, Scale: 1, Downsample: 4},
		{XTiles: 2, YTiles: 1, Scale: 2, Downsample: 2},
		{XTiles: 4, YTiles: 2, Scale: 4, Downsample: 1},
	}
	for i, l := range ext.Layers {
		if l != want[i] {
			t.Errorf("layer %d = %+v, want %+v", i, l, want[i])
		}
	}
}

func TestComputeExtentFactor4(t *testing.T) {
	ext, err := ComputeExtent(4096, 4096, 4)
	if err != nil {
		t.Fatal(err)
	}
	// 4096 -> 1024 -> 256: three layers.
	if len(ext.Layers) != 3 {
		t.Fatalf("layers = %d, want 3", len(ext.Layers))
	}
	base := ext.Layers[len(ext.Layers)-1]
	if base.XTiles != 16 || base.YTiles != 16 || base.Downsample != 1 {
		t.Errorf("base layer = %+v", base)
	}
	if ext.Layers[0].Downsample != 16 {
		t.Errorf("top downsample = %v, want 16", ext.Layers[0].Downsample)
	}
}

func TestComputeExtentErrors(t *testing.T) {
	if _, err := ComputeExtent(100, 100, 3); !errors.Is(err, ErrBadFactor) {
		t.Errorf("factor 3: err = %v, want ErrBadFactor", err)
	}
	if _, err := ComputeExtent(0, 100, 2); !errors.Is(err, ErrEmptyExtent) {
		t.Errorf("zero width: err = %v, want ErrEmptyExtent", err)
	}
}

// TestComposeParentMatchesDirect verifies that composing a full child
// grid is equivalent to the four direct quadrant downsample calls.
func TestComposeParentMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	channels := 4
	children := [][]*buffer.Buffer{
		{randomTileBuffer(rng, channels), randomTileBuffer(rng, channels)},
		{randomTileBuffer(rng, channels), randomTileBuffer(rng, channels)},
	}

	parent := buffer.NewSized(tile.Area * channels)
	if err := ComposeParent(children, parent, 2, channels); err != nil {
		t.Fatal(err)
	}

	direct := buffer.NewSized(tile.Area * channels)
	for subY := 0; subY < 2; subY++ {
		for subX := 0; subX < 2; subX++ {
			if err := tile.Downsample2xAvg(children[subY][subX], direct, subY, subX, channels); err != nil {
				t.Fatal(err)
			}
		}
	}

	if !bytes.Equal(parent.Data(), direct.Data()) {
		t.Error("ComposeParent differs from direct quadrant downsampling")
	}
}

func TestComposeParentSkipsNil(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	channels := 3
	children := [][]*buffer.Buffer{
		{randomTileBuffer(rng, channels), nil},
		{nil, nil},
	}
	parent := buffer.NewSized(tile.Area * channels)
	for i := range parent.Storage() {
		parent.Storage()[i] = 0xEE
	}
	if err := ComposeParent(children, parent, 2, channels); err != nil {
		t.Fatal(err)
	}

	// Only quadrant (0,0) may have been written.
	stride := tile.Length * channels
	d := parent.Storage()
	for y := 0; y < tile.Length; y++ {
		for x := 0; x < tile.Length; x++ {
			if y < 128 && x < 128 {
				continue
			}
			for c := 0; c < channels; c++ {
				if d[y*stride+x*channels+c] != 0xEE {
					t.Fatalf("nil child region modified at (%d,%d)", y, x)
				}
			}
		}
	}
}

func TestComposeParentBadGrid(t *testing.T) {
	parent := buffer.NewSized(tile.BytesRGB)
	if err := ComposeParent(make([][]*buffer.Buffer, 3), parent, 2, 3); !errors.Is(err, ErrBadGrid) {
		t.Errorf("3 rows at factor 2: err = %v, want ErrBadGrid", err)
	}
	if err := ComposeParent(nil, parent, 3, 3); !errors.Is(err, ErrBadFactor) {
		t.Errorf("factor 3: err = %v, want ErrBadFactor", err)
	}
	ragged := [][]*buffer.Buffer{make([]*buffer.Buffer, 1), make([]*buffer.Buffer, 2)}
	if err := ComposeParent(ragged, parent, 2, 3); !errors.Is(err, ErrBadGrid) {
		t.Errorf("ragged grid: err = %v, want ErrBadGrid", err)
	}
}

func TestBuildLevelDimensions(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	channels := 3

	// A 3x5 grid at factor 2 reduces to 2x3.
	tiles := make([][]*buffer.Buffer, 3)
	for y := range tiles {
		tiles[y] = make([]*buffer.Buffer, 5)
		for x := range tiles[y] {
			tiles[y][x] = randomTileBuffer(rng, channels)
		}
	}

	parents, err := BuildLevel(tiles, 2, channels, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 2 || len(parents[0]) != 3 {
		t.Fatalf("parent grid = %dx%d, want 2x3", len(parents), len(parents[0]))
	}
	for y := range parents {
		for x, p := range parents[y] {
			if p == nil {
				t.Fatalf("parent (%d,%d) is nil", y, x)
			}
			if p.Size() != tile.Area*channels {
				t.Fatalf("parent (%d,%d) size = %d", y, x, p.Size())
			}
		}
	}

	// The interior parent (0,0) must match a direct composition.
	direct := buffer.NewSized(tile.Area * channels)
	for subY := 0; subY < 2; subY++ {
		for subX := 0; subX < 2; subX++ {
			if err := tile.Downsample2xAvg(tiles[subY][subX], direct, subY, subX, channels); err != nil {
				t.Fatal(err)
			}
		}
	}
	if !bytes.Equal(parents[0][0].Data(), direct.Data()) {
		t.Error("interior parent differs from direct composition")
	}

	// The ragged corner parent (1,2) has only children from row 2,
	// column 4; everything else must be zero.
	corner := parents[1][2]
	want := buffer.NewSized(tile.Area * channels)
	if err := want.SetSize(tile.Area * channels); err != nil {
		t.Fatal(err)
	}
	if err := tile.Downsample2xAvg(tiles[2][4], want, 0, 0, channels); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(corner.Data(), want.Data()) {
		t.Error("ragged corner parent differs from expected composition")
	}
}

func TestBuildLevelWithPool(t *testing.T) {
	rng := rand.New(rand.NewSource(34))
	channels := 4
	tiles := [][]*buffer.Buffer{
		{randomTileBuffer(rng, channels), randomTileBuffer(rng, channels)},
		{randomTileBuffer(rng, channels), randomTileBuffer(rng, channels)},
	}
	pool := buffer.NewPool()
	parents, err := BuildLevel(tiles, 2, channels, pool)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 1 || len(parents[0]) != 1 {
		t.Fatalf("parent grid = %dx%d, want 1x1", len(parents), len(parents[0]))
	}
	if pool.MemoryUsed() == 0 {
		t.Error("pool shows no outstanding storage after BuildLevel")
	}
	pool.Put(parents[0][0])
	if pool.MemoryUsed() != 0 {
		t.Errorf("MemoryUsed = %d after returning all buffers", pool.MemoryUsed())
	}
}

func TestBuildLevelParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(35))
	channels := 3

	tiles := make([][]*buffer.Buffer, 4)
	for y := range tiles {
		tiles[y] = make([]*buffer.Buffer, 4)
		for x := range tiles[y] {
			tiles[y][x] = randomTileBuffer(rng, channels)
		}
	}

	old := GetParallelConfig()
	SetParallelConfig(ParallelConfig{Workers: 4, Grain: 0})
	defer SetParallelConfig(old)

	got, err := BuildLevelParallel(tiles, 2, channels, nil)
	if err != nil {
		t.Fatal(err)
	}
	want, err := BuildLevel(tiles, 2, channels, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) || len(got[0]) != len(want[0]) {
		t.Fatalf("parallel grid = %dx%d, sequential %dx%d",
			len(got), len(got[0]), len(want), len(want[0]))
	}
	for y := range want {
		for x := range want[y] {
			if !bytes.Equal(got[y][x].Data(), want[y][x].Data()) {
				t.Fatalf("parent (%d,%d) differs between parallel and sequential builds", y, x)
			}
		}
	}
}

func TestBuildLevelParallelLimitError(t *testing.T) {
	rng := rand.New(rand.NewSource(36))
	channels := 4
	tiles := make([][]*buffer.Buffer, 4)
	for y := range tiles {
		tiles[y] = make([]*buffer.Buffer, 4)
		for x := range tiles[y] {
			tiles[y][x] = randomTileBuffer(rng, channels)
		}
	}

	// Allow a single parent tile; building four must fail and return
	// every completed buffer to the pool.
	pool := buffer.NewPoolWithLimit(int64(tile.BytesRGBA))
	if _, err := BuildLevelParallel(tiles, 2, channels, pool); err == nil {
		t.Fatal("expected memory limit error")
	}
	if pool.MemoryUsed() != 0 {
		t.Errorf("MemoryUsed = %d after failed build", pool.MemoryUsed())
	}
}

func TestBuildLevelErrors(t *testing.T) {
	if _, err := BuildLevel(nil, 2, 3, nil); !errors.Is(err, ErrEmptyExtent) {
		t.Errorf("nil grid: err = %v, want ErrEmptyExtent", err)
	}
	if _, err := BuildLevel([][]*buffer.Buffer{{}}, 2, 3, nil); !errors.Is(err, ErrEmptyExtent) {
		t.Errorf("empty row: err = %v, want ErrEmptyExtent", err)
	}
	grid := [][]*buffer.Buffer{{buffer.NewSized(tile.BytesRGB)}}
	if _, err := BuildLevel(grid, 3, 3, nil); !errors.Is(err, ErrBadFactor) {
		t.Errorf("factor 3: err = %v, want ErrBadFactor", err)
	}
	if _, err := BuildLevel(grid, 2, 5, nil); !errors.Is(err, tile.ErrUnsupportedChannels) {
		t.Errorf("channels 5: err = %v, want ErrUnsupportedChannels", err)
	}
}
