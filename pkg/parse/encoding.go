package parse

import (
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// readTextGuess reads a file and decodes it as UTF-8, Shift_JIS or GBK,
// whichever fits first. Lyric files in the wild are frequently cp932 or
// cp936. Falls back to a lossy UTF-8 interpretation.
func readTextGuess(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	for _, enc := range []encoding.Encoding{japanese.ShiftJIS, simplifiedchinese.GBK} {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if s := string(decoded); !strings.ContainsRune(s, utf8.RuneError) {
			return s, nil
		}
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}
