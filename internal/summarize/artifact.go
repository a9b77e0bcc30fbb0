package summarize

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
)

const (
	artifactNameLen = 12
	alphanumerics   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomName(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumerics[rand.IntN(len(alphanumerics))]
	}
	return string(b)
}

// stage copies r into a new file named <12 random alphanumerics><ext> under
// dir and returns its path.
func stage(dir string, r io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("summarize: create %s: %w", dir, err)
	}

	var f *os.File
	for attempt := 0; ; attempt++ {
		path := filepath.Join(dir, randomName(artifactNameLen)+ext)
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) || attempt == 3 {
			return "", fmt.Errorf("summarize: create artifact: %w", err)
		}
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("summarize: write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("summarize: close artifact: %w", err)
	}
	return f.Name(), nil
}
