package metrics

import (
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// WriteTextfile writes the gathered metrics to path in the text exposition
// format. The file is replaced atomically, so a textfile collector never reads
// a partial write.
func WriteTextfile(path string, g prom.Gatherer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.IOError("create metrics directory").
				WithContext("path", path).
				WithCause(err).
				Build()
		}
	}
	if err := prom.WriteToTextfile(path, g); err != nil {
		return errors.IOError("write metrics textfile").
			WithContext("path", path).
			WithCause(err).
			Build()
	}
	return nil
}
