package tag

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// Reader reads tags back from audio files, used to verify a file was
// written and tagged correctly before it is reported ready.
type Reader struct{}

// NewReader creates a tag reader.
func NewReader() *Reader {
	return &Reader{}
}

// Verify opens the file and reports whether its tags parse and carry the
// expected title. Unreadable tags are an error; a title mismatch is not.
func (r *Reader) Verify(path, wantTitle string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open file for verification: %w", err)
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return false, fmt.Errorf("failed to read tags back: %w", err)
	}

	return tags.Title() == wantTitle, nil
}
