// Package direnv writes environment changes in the format direnv reads
// back from DIRENV_DUMP_FILE_PATH.
package direnv

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
)

// Dump encodes vars as direnv does: JSON, zlib compressed, base64 (URL
// alphabet).
func Dump(vars map[string]string) (string, error) {
	data, err := json.Marshal(vars)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	w := zlib.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// Write dumps vars to the file direnv asked for, or w when it did not ask.
func Write(w io.Writer, vars map[string]string) error {
	s, err := Dump(vars)
	if err != nil {
		return err
	}

	if path := os.Getenv("DIRENV_DUMP_FILE_PATH"); path != "" {
		return os.WriteFile(path, []byte(s+"\n"), 0644)
	}

	_, err = io.WriteString(w, s+"\n")
	return err
}
