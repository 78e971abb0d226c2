package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/port"
)

var glbMagic = []byte("glTF")

// FileProbe is a port.ModelLoader that checks a cached model is a readable,
// non-empty file and logs the placement. It stands in for a real renderer.
type FileProbe struct {
	logger *zap.Logger
}

// Ensure FileProbe implements port.ModelLoader
var _ port.ModelLoader = (*FileProbe)(nil)

// NewFileProbe creates a new FileProbe
func NewFileProbe(logger *zap.Logger) *FileProbe {
	return &FileProbe{logger: logger}
}

// Load verifies the file at localPath
func (p *FileProbe) Load(ctx context.Context, name, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat model: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("model is not a regular file: %s", localPath)
	}
	if info.Size() == 0 {
		return fmt.Errorf("model file is empty: %s", localPath)
	}

	header := make([]byte, len(glbMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("failed to read model: %w", err)
	}

	format := "unknown"
	if n == len(glbMagic) && bytes.Equal(header, glbMagic) {
		format = "glb"
	}

	p.logger.Info("model placed",
		zap.String("name", name),
		zap.String("file", localPath),
		zap.String("format", format),
		zap.String("size", humanize.IBytes(uint64(info.Size()))))
	return nil
}
