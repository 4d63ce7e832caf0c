package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/bamsammich/checksum/internal/platform"
)

// ProgressFunc receives cumulative bytes written for one unit and the
// source size (0 if unknown).
type ProgressFunc func(done, total int64)

// Hooks are the optional per-unit callbacks of CopyAndVerify.
type Hooks struct {
	OnProgress  ProgressFunc
	IsCancelled func() bool
}

// Verifier copies one file while digesting it on both sides of the write,
// then compares the digests. A Verifier is safe for concurrent use.
type Verifier struct {
	limiter  *rate.Limiter
	wrap     func(io.Writer) io.Writer
	partials partialRegistry
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithBandwidthLimit throttles destination writes through limiter. Share
// one limiter between workers to cap aggregate throughput.
func WithBandwidthLimit(limiter *rate.Limiter) VerifierOption {
	return func(v *Verifier) { v.limiter = limiter }
}

// WithWriterWrapper wraps every destination writer, outermost.
func WithWriterWrapper(wrap func(io.Writer) io.Writer) VerifierOption {
	return func(v *Verifier) { v.wrap = wrap }
}

// NewVerifier returns a Verifier with the given options applied.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Partials lists destinations left behind by failed or cancelled copies.
func (v *Verifier) Partials() []string {
	return v.partials.list()
}

// CleanupPartials removes the destinations reported by Partials and
// returns the paths it removed.
func (v *Verifier) CleanupPartials() []string {
	return v.partials.cleanup()
}

// CopyAndVerify copies src to dst and proves the copy by digest.
//
// If dst exists and opts.Overwrite is false, nothing is written: both files
// are hashed and the result reports Copied=false when they agree, or a
// *MismatchError when they do not. A cancelled copy leaves the partial
// destination in place.
func (v *Verifier) CopyAndVerify(ctx context.Context, src, dst string, opts CopyOptions, hooks Hooks) (VerificationResult, error) {
	cancelled := func() bool {
		return ctx.Err() != nil || (hooks.IsCancelled != nil && hooks.IsCancelled())
	}
	if cancelled() {
		return VerificationResult{}, fmt.Errorf("%w: %s", ErrCancelled, src)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return VerificationResult{}, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return VerificationResult{}, fmt.Errorf("%w: stat %s: %w", ErrCopyFailed, src, err)
	}
	if srcInfo.IsDir() {
		return VerificationResult{}, fmt.Errorf("%w: %s is a directory", ErrCopyFailed, src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return VerificationResult{}, fmt.Errorf("%w: %s: %w", ErrDestinationDirCreate, filepath.Dir(dst), err)
	}

	alg := opts.Algorithm
	if alg == "" {
		alg = MD5
	}

	if _, err := os.Lstat(dst); err == nil {
		if !opts.Overwrite {
			return v.compareExisting(src, dst, alg, opts.bufferSize(), cancelled)
		}
		if err := os.Remove(dst); err != nil {
			slog.Debug("remove existing destination", "path", dst, "error", err)
		}
	}

	res, err := v.stream(ctx, src, dst, srcInfo, alg, opts.bufferSize(), hooks, cancelled)
	if err != nil {
		return VerificationResult{}, err
	}

	if opts.PreserveTimestamps {
		if err := setFileTimes(dst, accessTime(srcInfo), srcInfo.ModTime()); err != nil {
			slog.Debug("preserve timestamps", "path", dst, "error", err)
		}
	}
	return res, nil
}

func (v *Verifier) compareExisting(
	src, dst string,
	alg Algorithm,
	chunkSize int,
	cancelled func() bool,
) (VerificationResult, error) {
	srcDigest, err := hashFile(src, alg, chunkSize, cancelled)
	if err != nil {
		return VerificationResult{}, err
	}
	dstDigest, err := hashFile(dst, alg, chunkSize, cancelled)
	if err != nil {
		return VerificationResult{}, err
	}
	if srcDigest != dstDigest {
		return VerificationResult{}, &MismatchError{
			Source:      src,
			Destination: dst,
			Expected:    srcDigest,
			Actual:      dstDigest,
		}
	}
	return VerificationResult{
		Source:      src,
		Destination: dst,
		Digest:      srcDigest,
		Algorithm:   alg.String(),
	}, nil
}

func (v *Verifier) stream(
	ctx context.Context,
	src, dst string,
	srcInfo fs.FileInfo,
	alg Algorithm,
	chunkSize int,
	hooks Hooks,
	cancelled func() bool,
) (VerificationResult, error) {
	in, err := os.Open(src)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("%w: open %s: %w", ErrCopyFailed, src, err)
	}
	defer in.Close()
	platform.AdviseSequential(in)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return VerificationResult{}, fmt.Errorf("%w: create %s: %w", ErrCopyFailed, dst, err)
	}
	v.partials.register(dst)
	platform.Preallocate(out, srcInfo.Size())

	var w io.Writer = out
	if v.limiter != nil {
		w = newRateLimitedWriter(ctx, w, v.limiter, cancelled)
	}
	if v.wrap != nil {
		w = v.wrap(w)
	}

	srcHash := alg.New()
	dstHash := alg.New()
	buf := make([]byte, chunkSize)
	var written int64

	fail := func(err error) (VerificationResult, error) {
		out.Close()
		return VerificationResult{}, err
	}

	for {
		if cancelled() {
			return fail(fmt.Errorf("%w: %s", ErrCancelled, dst))
		}
		n, rerr := in.Read(buf)
		if n > 0 {
			srcHash.Write(buf[:n])
			for off := 0; off < n; {
				if cancelled() {
					return fail(fmt.Errorf("%w: %s", ErrCancelled, dst))
				}
				m, werr := w.Write(buf[off:n])
				if werr != nil {
					if cancelled() {
						return fail(fmt.Errorf("%w: %s", ErrCancelled, dst))
					}
					return fail(fmt.Errorf("%w: write %s: %w", ErrCopyFailed, dst, werr))
				}
				if m == 0 {
					return fail(fmt.Errorf("%w: write %s: %w", ErrCopyFailed, dst, io.ErrShortWrite))
				}
				off += m
			}
			dstHash.Write(buf[:n])
			written += int64(n)
			if hooks.OnProgress != nil {
				hooks.OnProgress(written, srcInfo.Size())
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fail(fmt.Errorf("%w: read %s: %w", ErrCopyFailed, src, rerr))
		}
	}

	if err := out.Close(); err != nil {
		return VerificationResult{}, fmt.Errorf("%w: close %s: %w", ErrCopyFailed, dst, err)
	}

	expected := hex.EncodeToString(srcHash.Sum(nil))
	actual := hex.EncodeToString(dstHash.Sum(nil))
	if expected != actual {
		return VerificationResult{}, &MismatchError{
			Source:      src,
			Destination: dst,
			Expected:    expected,
			Actual:      actual,
		}
	}
	v.partials.deregister(dst)

	return VerificationResult{
		Source:      src,
		Destination: dst,
		Digest:      expected,
		Algorithm:   alg.String(),
		Bytes:       written,
		Copied:      true,
	}, nil
}
