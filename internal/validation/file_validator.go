package validation

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"salesreport/internal/errors"
)

// FileValidator provides the pre-flight file checks of a report run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that path exists, is a regular file and is readable.
// A missing file is a NOT_FOUND error, anything else an INPUT error.
func (v *FileValidator) ValidateFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		v.logger.ErrorContext(ctx, "Sales data file not found",
			slog.String("file", path))
		return errors.NewNotFoundError("sales data file").WithContext("path", path)
	}
	if err != nil {
		v.logger.ErrorContext(ctx, "Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewInputError("failed to stat file", err).WithContext("path", path)
	}
	if info.IsDir() {
		v.logger.ErrorContext(ctx, "Path is a directory, not a file",
			slog.String("path", path))
		return errors.NewInputError("path is a directory, not a file", nil).WithContext("path", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.ErrorContext(ctx, "File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewInputError("file is not readable", err).WithContext("path", path)
	}
	file.Close()

	v.logger.DebugContext(ctx, "File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile validates path like ValidateFile and warns when the
// extension does not look like CSV. The content decides, not the name.
func (v *FileValidator) ValidateCSVFile(ctx context.Context, path string) error {
	if err := v.ValidateFile(ctx, path); err != nil {
		return err
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		v.logger.WarnContext(ctx, "Input file does not have a .csv extension",
			slog.String("file", path),
			slog.String("extension", ext))
	}
	return nil
}

// ValidateOutputDirectory ensures the output directory exists or can be
// created, and that files can be created in it.
func (v *FileValidator) ValidateOutputDirectory(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.ErrorContext(ctx, "Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewOutputError("failed to create output directory", err).WithContext("dir", dir)
	}

	file, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.ErrorContext(ctx, "Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewOutputError("output directory is not writable", err).WithContext("dir", dir)
	}
	file.Close()
	os.Remove(file.Name())

	v.logger.DebugContext(ctx, "Output directory validated",
		slog.String("directory", dir))
	return nil
}
