package pipeline

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// decodeReader wraps r so it yields UTF-8. Labels follow the WHATWG encoding names
// ("windows-1252", "latin1", "shift_jis", ...).
func decodeReader(r io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported dataset encoding %q: %w", label, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
