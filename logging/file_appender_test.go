package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "multiview.log")
	appender := NewFileAppender(path)

	logger := NewBlankLogger("file")
	logger.SetLevel(INFO)
	logger.AddAppender(appender)
	logger.Debug("dropped")
	logger.Infow("quantized ray", "positions", 12)
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 1)
	test.That(t, lines[0], test.ShouldContainSubstring, "INFO\tfile\t")
	test.That(t, lines[0], test.ShouldContainSubstring, "quantized ray\t{\"positions\":12}")
}
