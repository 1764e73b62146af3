package resources

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/hslremote/internal/observability"
	"github.com/danmuck/hslremote/internal/tools"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

const DefaultCacheTTL = 10 * time.Minute

// Converter runs the vendor converter that rewrites a binary configuration
// file as text in place. Sources are never touched; a copy is converted.
type Converter struct {
	executable string
	workDir    string
	runner     tools.CommandRunner
	cache      *ttlcache.Cache[string, string]
}

// NewConverter returns a started Converter. An empty workDir uses the system
// temp directory; ttl <= 0 uses DefaultCacheTTL. Close stops the cache.
func NewConverter(executable, workDir string, runner tools.CommandRunner, ttl time.Duration) *Converter {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	c := &Converter{
		executable: executable,
		workDir:    workDir,
		runner:     runner,
		cache: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](ttl),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
	go c.cache.Start()
	return c
}

func (c *Converter) Close() {
	c.cache.Stop()
}

// ToText returns the text form of the file at path. Results are cached per
// path, modification time and size.
func (c *Converter) ToText(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("resources: stat %s: %w", abs, err)
	}
	key := fmt.Sprintf("%s|%d|%d", abs, info.ModTime().UnixNano(), info.Size())
	if item := c.cache.Get(key); item != nil {
		observability.RecordConversion(true)
		log.Debug().Msgf("resources.Converter.ToText cache hit path=%q", abs)
		return item.Value(), nil
	}

	text, err := c.convert(ctx, abs)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, text, ttlcache.DefaultTTL)
	observability.RecordConversion(false)
	return text, nil
}

func (c *Converter) convert(ctx context.Context, src string) (string, error) {
	if c.workDir != "" {
		if err := os.MkdirAll(c.workDir, 0o755); err != nil {
			return "", err
		}
	}
	dir, err := os.MkdirTemp(c.workDir, "convert-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("resources: copy %s: %w", src, err)
	}

	_, stderr, code, err := c.runner.Run(ctx, c.executable, "/t", dst)
	if err != nil || code != 0 {
		return "", fmt.Errorf("%w: %s exit=%d stderr=%q: %v", ErrConversion, filepath.Base(src), code, strings.TrimSpace(string(stderr)), err)
	}
	raw, err := os.ReadFile(dst)
	if err != nil {
		return "", fmt.Errorf("resources: read converted %s: %w", dst, err)
	}
	log.Debug().Msgf("resources.Converter.convert path=%q bytes=%d", src, len(raw))
	return normalizeNewlines(string(raw)), nil
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
