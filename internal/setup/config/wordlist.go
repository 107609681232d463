package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/tailscale/hujson"
)

// WordlistFile is the name of the optional profanity word list.
const WordlistFile = "wordlist.jsonc"

// ErrWordlistNotFound is returned when no word list exists in any search path.
var ErrWordlistNotFound = errors.New("could not find wordlist.jsonc in any config path")

// WordlistEntry is a forbidden word with its spelling variants.
type WordlistEntry struct {
	Term     string   `json:"term"`               // Primary form
	Variants []string `json:"variants,omitempty"` // Other spellings matched like the term
	Note     string   `json:"note,omitempty"`     // Moderator note, never shown to members
}

// Wordlist is the parsed word list file.
type Wordlist struct {
	Terms []WordlistEntry `json:"terms"`
}

// Words flattens terms and variants in file order.
func (w *Wordlist) Words() []string {
	var words []string
	for _, entry := range w.Terms {
		words = append(words, entry.Term)
		words = append(words, entry.Variants...)
	}
	return words
}

// SearchPaths returns the directories searched for config files.
func SearchPaths() []string {
	paths := []string{".isero"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".isero", "config"))
	}
	return append(paths, "/etc/isero/config", "config", ".")
}

// LoadWordlist loads the first word list found in the search paths.
// It returns the list together with the file it was read from.
func LoadWordlist(paths []string) (*Wordlist, string, error) {
	for _, dir := range paths {
		path := filepath.Join(dir, WordlistFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		wordlist, err := ReadWordlist(path)
		if err != nil {
			return nil, path, err
		}
		return wordlist, path, nil
	}

	return nil, "", ErrWordlistNotFound
}

// ReadWordlist parses a JSONC word list file.
func ReadWordlist(path string) (*Wordlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wordlist file: %w", err)
	}

	standardJSON, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize JSONC: %w", err)
	}

	var wordlist Wordlist
	if err := sonic.Unmarshal(standardJSON, &wordlist); err != nil {
		return nil, fmt.Errorf("failed to parse wordlist JSON: %w", err)
	}

	return &wordlist, nil
}
