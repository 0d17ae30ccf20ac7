package bundle

import (
	"fmt"
	"strings"
)

// MalformedBundleError reports an archive that cannot serve as a schedule
// bundle: unreadable zip data, a missing required table, or a table whose
// header or rows do not match the expected schema.
type MalformedBundleError struct {
	Path   string // source path, empty when reading from memory
	Table  string // offending table, empty when the archive itself is broken
	Reason string
	Err    error
}

func (e *MalformedBundleError) Error() string {
	var b strings.Builder
	b.WriteString("malformed bundle")
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Table != "" {
		fmt.Fprintf(&b, ": table %s", e.Table)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *MalformedBundleError) Unwrap() error { return e.Err }

// EncodingError reports that none of the attempted character encodings
// produced a parsable table.
type EncodingError struct {
	Table     string
	Encodings []string
	Err       error // error from the last attempt
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("table %s: encoding fallback exhausted (tried %s): %v",
		e.Table, strings.Join(e.Encodings, ", "), e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
