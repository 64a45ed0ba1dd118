package mnist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrChecksum indicates a file whose SHA-256 digest differs from the expected one.
var ErrChecksum = errors.New("mnist: checksum mismatch")

// resolve returns the path of a verified copy of f, downloading it when needed.
func resolve(ctx context.Context, opts Options, f File) (string, error) {
	var lastErr error
	for _, dir := range append([]string{opts.CacheDir}, opts.SearchDirs...) {
		path := filepath.Join(dir, f.Name)
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				lastErr = fmt.Errorf("mnist: stat %s: %w", path, err)
			}
			continue
		}
		if err := verify(path, f.Digest); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("ignoring mnist file")
			lastErr = err
			continue
		}
		log.Debug().Str("path", path).Msg("mnist file found")
		return path, nil
	}
	if opts.Offline {
		if lastErr != nil {
			return "", lastErr
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, f.Name)
	}
	return download(ctx, opts, f)
}

// verify checks the SHA-256 digest of the file at path.
func verify(path, digest string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("mnist: open %s: %w", path, err)
	}
	defer file.Close()
	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return fmt.Errorf("mnist: hash %s: %w", path, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != digest {
		return fmt.Errorf("%w: %s has %s, want %s", ErrChecksum, path, got, digest)
	}
	return nil
}

// download fetches f into the cache directory. The file only appears under its
// final name once its digest has been verified.
func download(ctx context.Context, opts Options, f File) (string, error) {
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("mnist: create cache dir: %w", err)
	}
	url := strings.TrimSuffix(opts.MirrorURL, "/") + "/" + f.Name
	log.Info().Str("url", url).Msg("downloading mnist file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("mnist: request %s: %w", url, err)
	}
	resp, err := opts.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mnist: download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mnist: download %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(opts.CacheDir, f.Name+".*.part")
	if err != nil {
		return "", fmt.Errorf("mnist: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("mnist: write %s: %w", f.Name, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != f.Digest {
		return "", fmt.Errorf("%w: downloaded %s has %s, want %s", ErrChecksum, f.Name, got, f.Digest)
	}

	path := filepath.Join(opts.CacheDir, f.Name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("mnist: store %s: %w", f.Name, err)
	}
	log.Info().Str("path", path).Int64("bytes", n).Msg("mnist file cached")
	return path, nil
}
