package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
)

// stageCopyPassthrough copies every passthrough source byte-for-byte into staging.
func stageCopyPassthrough(ctx context.Context, bs *BuildState) error {
	for _, res := range bs.Passthrough {
		if err := checkCanceled(ctx, StageCopyPassthrough); err != nil {
			return err
		}
		if err := bs.copyRule(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (bs *BuildState) sourcePath(source string) string {
	return filepath.Join(bs.Generator.root, filepath.FromSlash(source))
}

func (bs *BuildState) copyRule(ctx context.Context, res registry.Resolved) error {
	src := bs.sourcePath(res.Rule.Source)
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newFatalStageError(StageCopyPassthrough, fmt.Errorf("%w: %w", ErrPassthrough, sberrors.MissingAsset(res.Rule.Source, err)))
		}
		return newFatalStageError(StageCopyPassthrough, sberrors.FileSystemError("stat", src, err))
	}

	if !info.IsDir() {
		dest := res.Destination
		if res.IntoDir {
			dest = path.Join(dest, filepath.Base(src))
		}
		return bs.copyOne(src, dest, res.Rule.Source)
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return newFatalStageError(StageCopyPassthrough, sberrors.FileSystemError("walk", p, err))
		}
		if cerr := checkCanceled(ctx, StageCopyPassthrough); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		// WalkDir does not descend into symlinked directories and copyFile
		// only copies regular files.
		if d.Type()&fs.ModeSymlink != 0 {
			if target, err := os.Stat(p); err == nil && target.IsDir() {
				bs.log.Warn("Skipping symlinked directory in passthrough source",
					logfields.Path(p), logfields.Source(res.Rule.Source))
				return nil
			}
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return newFatalStageError(StageCopyPassthrough, sberrors.FileSystemError("rel", p, err))
		}
		return bs.copyOne(p, path.Join(res.Destination, filepath.ToSlash(rel)), res.Rule.Source)
	})
}

// copyOne copies a single file to an output-relative destination.
func (bs *BuildState) copyOne(src, dest, origin string) error {
	if err := bs.claim(dest, origin); err != nil {
		return newFatalStageError(StageCopyPassthrough, err)
	}
	n, err := copyFile(src, bs.StagePath(dest))
	if err != nil {
		return newFatalStageError(StageCopyPassthrough, fmt.Errorf("%w: %w", ErrPassthrough, sberrors.FileSystemError("copy", src, err)))
	}
	bs.Report.Assets++
	bs.Report.AssetBytes += n
	bs.log.Debug("Copied passthrough file", logfields.Source(src), logfields.Destination(dest))
	return nil
}

// copyFile copies src to dst, creating parent directories and keeping the
// permission bits. Symlinks are followed.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
