package metadata

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ParseChecksums reads a manifest of "<checksum>  <path>" lines into a map
// from path to checksum. Blank lines are skipped.
func ParseChecksums(r io.Reader) (map[string]string, error) {
	checksums := make(map[string]string)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i < 0 {
			return nil, fmt.Errorf("checksum manifest line %d: missing path", n)
		}
		path := strings.TrimSpace(line[i:])
		path = strings.TrimPrefix(path, "*") // binary-mode marker
		checksums[path] = line[:i]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return checksums, nil
}

// FormatChecksums renders a manifest sorted by path.
func FormatChecksums(checksums map[string]string) []byte {
	paths := make([]string, 0, len(checksums))
	for p := range checksums {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	for _, p := range paths {
		fmt.Fprintf(&buf, "%s  %s\n", checksums[p], p)
	}
	return buf.Bytes()
}

// HashString returns the hex md5 of s.
func HashString(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashReader returns the hex md5 of everything read from r.
func HashReader(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
