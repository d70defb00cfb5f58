package moderation

import (
	"bufio"
	"bytes"
	"chat-gateway/errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Dictionary is the content of a censored words directory.
type Dictionary struct {
	Words     []string
	Languages []string
}

// LoadDictionary reads every .txt file at the root of fsys, one word per line.
// The file name is the language ("fr.txt" -> "fr"). Blank lines and lines
// starting with '#' are skipped.
func LoadDictionary(fsys fs.FS) (Dictionary, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return Dictionary{}, err
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return Dictionary{}, err
		}
		// bufio handles both \n and \r\n line endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			unique[line] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return Dictionary{}, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
	}
	if len(unique) == 0 {
		return Dictionary{}, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	sort.Strings(words)
	return Dictionary{Words: words, Languages: languages}, nil
}
