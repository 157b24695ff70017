package vision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/banshee-data/lanecount/internal/pipeline"
)

var maskExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".gif":  true,
}

// DirSource replays a directory of mask images in lexical file-name order.
// Each file is one frame; frame indices start at 1.
type DirSource struct {
	// Threshold is the grayscale level above which a pixel counts as motion.
	// Lossy formats need a higher value than the default of 0.
	Threshold uint8

	paths []string
	next  int
}

// NewDirSource lists the image files in dir. It fails if there are none.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mask dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if maskExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no mask images found in %s", dir)
	}
	sort.Strings(paths)
	return &DirSource{paths: paths}, nil
}

// Len returns the number of frames in the directory.
func (s *DirSource) Len() int { return len(s.paths) }

// FrameSize decodes the first image and reports its dimensions.
func (s *DirSource) FrameSize() (int, int, error) {
	img, err := imaging.Open(s.paths[0])
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", s.paths[0], err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// Next decodes the next image. Undecodable files are reported with
// pipeline.ErrSkipFrame so the run continues; io.EOF marks the end.
func (s *DirSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}
	if s.next >= len(s.paths) {
		return pipeline.Frame{}, io.EOF
	}
	path := s.paths[s.next]
	s.next++

	img, err := imaging.Open(path)
	if err != nil {
		return pipeline.Frame{}, fmt.Errorf("%w: decode %s: %v", pipeline.ErrSkipFrame, path, err)
	}
	return pipeline.Frame{
		Index:     s.next,
		Mask:      MaskFromImage(img, s.Threshold),
		Timestamp: time.Now(),
	}, nil
}

// Close releases nothing; it exists to satisfy pipeline.FrameSource.
func (s *DirSource) Close() error { return nil }
