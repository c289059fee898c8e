package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// PipeHandler moves bytes between the caller and a started process.
type PipeHandler interface {
	// PipeStandardInput copies src into the process's standard input and
	// closes it. It returns early, without error, once the process exits.
	PipeStandardInput(ctx context.Context, src io.Reader, w *Wrapper) error
	// PipeStandardOutput reads standard output until EOF.
	PipeStandardOutput(ctx context.Context, w *Wrapper) (io.ReadCloser, error)
	// PipeStandardError reads standard error until EOF.
	PipeStandardError(ctx context.Context, w *Wrapper) (io.ReadCloser, error)
}

// EncodingPipeHandler is the default PipeHandler. It transcodes each stream
// between UTF-8 and the encoding named in the process configuration.
type EncodingPipeHandler struct{}

var _ PipeHandler = EncodingPipeHandler{}

func (EncodingPipeHandler) PipeStandardInput(ctx context.Context, src io.Reader, w *Wrapper) error {
	stdin := w.Stdin()
	if stdin == nil {
		return apperrors.InvalidState("pipe standard input", "not redirected")
	}
	enc, err := lookupEncoding(w.cfg.StandardInputEncoding)
	if err != nil {
		return err
	}

	copied := make(chan error, 1)
	go func() {
		var dst io.Writer = stdin
		var tw *transform.Writer
		if enc != nil {
			tw = transform.NewWriter(stdin, enc.NewEncoder())
			dst = tw
		}
		_, err := io.Copy(dst, contextReader{ctx: ctx, r: src})
		if err == nil && tw != nil {
			err = tw.Close()
		}
		copied <- err
	}()

	var copyErr error
	select {
	case copyErr = <-copied:
	case <-w.Done():
	case <-ctx.Done():
		copyErr = ctx.Err()
	}
	closeErr := stdin.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil || isBrokenPipe(copyErr) || errors.Is(copyErr, os.ErrClosed) || w.HasExited() {
		return nil
	}
	return apperrors.IO("input", copyErr)
}

func (EncodingPipeHandler) PipeStandardOutput(ctx context.Context, w *Wrapper) (io.ReadCloser, error) {
	return capture(ctx, "output", w.Stdout(), w.cfg.StandardOutputEncoding)
}

func (EncodingPipeHandler) PipeStandardError(ctx context.Context, w *Wrapper) (io.ReadCloser, error) {
	return capture(ctx, "error", w.Stderr(), w.cfg.StandardErrorEncoding)
}

// capture buffers src decoded to UTF-8.
func capture(ctx context.Context, stream string, src io.Reader, encodingName string) (io.ReadCloser, error) {
	if src == nil {
		return nil, apperrors.InvalidState("pipe standard "+stream, "not redirected")
	}
	var buf bytes.Buffer
	if err := copyDecoded(ctx, stream, &buf, src, encodingName); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

// copyDecoded copies src to dst, decoding from encodingName to UTF-8.
func copyDecoded(ctx context.Context, stream string, dst io.Writer, src io.Reader, encodingName string) error {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return err
	}
	r := io.Reader(contextReader{ctx: ctx, r: src})
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	if _, err := io.Copy(dst, r); err != nil && !errors.Is(err, os.ErrClosed) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.IO(stream, err)
	}
	return nil
}

// lookupEncoding returns nil for UTF-8, which needs no transcoding.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, apperrors.InvalidInput("encoding", "unknown encoding "+name).WithCause(err)
	}
	if canonical, _ := htmlindex.Name(enc); strings.EqualFold(canonical, "utf-8") {
		return nil, nil
	}
	return enc, nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
