package zipkit

import "golang.org/x/text/encoding/charmap"

// defaultEncoding is the wire text encoding (member names and comments)
// assumed for every archive unless the caller overrides it via
// Open/OpenFile's encoding argument or EditableArchive.SetEncoding (spec
// §3, §6).
const defaultEncoding = "utf-8"

// resolveEncoding normalizes a caller-supplied encoding name, treating ""
// as the default.
func resolveEncoding(name string) string {
	if name == "" {
		return defaultEncoding
	}
	return name
}

func isUTF8Encoding(name string) bool {
	return resolveEncoding(name) == defaultEncoding
}

// decodeText turns wire bytes (a member name or comment) into a Go
// string per enc. "cp437"/"ibm437" goes through golang.org/x/text's
// CP-437 charmap — grounded on the pack-wide convention of reaching for
// golang.org/x/text for non-UTF-8 text rather than a hand-rolled table
// (see DESIGN.md). Anything else, including the default, is treated as
// already being UTF-8 and passed through unchanged.
func decodeText(b []byte, enc string) (string, error) {
	switch resolveEncoding(enc) {
	case "cp437", "ibm437":
		return charmap.CodePage437.NewDecoder().String(string(b))
	default:
		return string(b), nil
	}
}

// encodeText is decodeText's inverse, used when staging a name/comment
// for Save/Compose.
func encodeText(s, enc string) ([]byte, error) {
	switch resolveEncoding(enc) {
	case "cp437", "ibm437":
		out, err := charmap.CodePage437.NewEncoder().String(s)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	default:
		return []byte(s), nil
	}
}
