package reader

import (
	"fmt"
	"io"
	"strings"
)

const NoDataNotice = "No data found in the specified range."

// ResolveTitle returns the first title containing substr. The match is a
// plain, case-sensitive containment test. When nothing matches it returns
// fallback and false.
func ResolveTitle(titles []string, substr, fallback string) (string, bool) {
	for _, title := range titles {
		if strings.Contains(title, substr) {
			return title, true
		}
	}
	return fallback, false
}

// Report writes the no-data notice for an empty result, otherwise one line
// per row in the order given.
func Report(w io.Writer, values [][]string) error {
	if len(values) == 0 {
		_, err := fmt.Fprintln(w, NoDataNotice)
		return err
	}
	for _, row := range values {
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	return nil
}
