package msglog

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Install routes the standard logger to a size-rotated file as well as
// stderr. The engine logs through the standard logger everywhere, so
// this is the single switch for durable logs.
func Install(filename string) {
	rotated := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotated))
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
}
