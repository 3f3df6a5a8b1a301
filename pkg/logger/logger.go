package logger

import (
	"fmt"
	"log"
	"os"
)

// Printer is the minimal printf-style surface the transcript loggers need.
type Printer interface {
	Printf(format string, v ...any)
}

// New returns a stdlib-backed logger with a component prefix.
func New(component string) *log.Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return log.New(os.Stdout, prefix, log.LstdFlags)
}
