package logsvc

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/shankerdev/campus/core"
)

// NewWriter is stdout, teed into a rotating file when conf.Log.File is set.
// The returned closer releases the file.
func NewWriter(conf *core.Config) (io.Writer, io.Closer) {
	if conf.Log.File == "" {
		return os.Stdout, nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   conf.Log.File,
		MaxSize:    conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, file), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
