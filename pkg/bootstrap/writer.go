package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/arthur-debert/synthfs/pkg/synthfs/core"
	"github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
	"github.com/arthur-debert/synthfs/pkg/synthfs/operations"
	"github.com/rs/zerolog"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
)

// FileOp is one file the bootstrap stage puts in place. Exactly one of
// Content or Source is used: Source copies an existing file.
type FileOp struct {
	Target  string
	Content []byte
	Source  string
	Mode    fs.FileMode
}

// Writer applies FileOps as a single synthfs pipeline
type Writer struct {
	logger     zerolog.Logger
	filesystem synthfs.FileSystem
}

// NewWriter creates a writer on the root filesystem
func NewWriter() *Writer {
	return &Writer{
		logger:     logging.GetLogger("bootstrap.writer"),
		filesystem: filesystem.NewOSFileSystem("/"),
	}
}

// Apply replaces every target. Targets are removed and their parent
// directories created before the pipeline runs.
func (w *Writer) Apply(ctx context.Context, ops []FileOp) error {
	if len(ops) == 0 {
		return nil
	}

	pipeline := synthfs.NewMemPipeline()
	for _, op := range ops {
		if err := prepareTarget(op.Target); err != nil {
			return err
		}
		synthOp, err := w.convert(op)
		if err != nil {
			return err
		}
		if err := pipeline.Add(synthOp); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "failed to queue %s", op.Target)
		}
	}

	w.logger.Debug().Int("operationCount", len(ops)).Msg("Executing file operations")
	result := synthfs.NewExecutor().Run(ctx, pipeline, w.filesystem)
	if result.GetError() != nil {
		w.logger.Error().Err(result.GetError()).Msg("File pipeline failed")
		return errors.Wrap(result.GetError(), errors.ErrFileWrite, "failed to write files")
	}
	return nil
}

func prepareTarget(target string) error {
	if !filepath.IsAbs(target) {
		return errors.Newf(errors.ErrInvalidInput, "target must be absolute: %s", target)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to replace %s", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create %s", filepath.Dir(target))
	}
	return nil
}

func (w *Writer) convert(op FileOp) (synthfs.Operation, error) {
	relTarget, err := filepath.Rel("/", op.Target)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to convert path: %s", op.Target)
	}

	if op.Source != "" {
		relSource, err := filepath.Rel("/", op.Source)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to convert source path: %s", op.Source)
		}
		id := core.OperationID(fmt.Sprintf("copy-%s-to-%s", filepath.Base(op.Source), op.Target))
		copyOp := operations.NewCopyOperation(id, relTarget)
		copyOp.SetPaths(relSource, relTarget)
		return synthfs.NewOperationsPackageAdapter(copyOp), nil
	}

	mode := op.Mode
	if mode == 0 {
		mode = 0o644
	}
	id := core.OperationID(fmt.Sprintf("write-file-%s", op.Target))
	createOp := operations.NewCreateFileOperation(id, relTarget)
	createOp.SetItem(&fileItem{path: relTarget, content: op.Content, mode: mode})
	return synthfs.NewOperationsPackageAdapter(createOp), nil
}

type fileItem struct {
	path    string
	content []byte
	mode    fs.FileMode
}

func (f *fileItem) Path() string       { return f.path }
func (f *fileItem) Type() string       { return "file" }
func (f *fileItem) Content() []byte    { return f.content }
func (f *fileItem) Mode() fs.FileMode  { return f.mode }
func (f *fileItem) IsDir() bool        { return false }
func (f *fileItem) ModTime() time.Time { return time.Now() }
func (f *fileItem) Size() int64        { return int64(len(f.content)) }
