package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var logOnce struct {
	sync.Once
	l *log.Logger
}

// Logger returns the process-wide line logger. Every line it emits is a
// single JSON object so log shippers never have to parse free text.
func Logger() *log.Logger {
	logOnce.Do(func() {
		logOnce.l = log.New(os.Stdout, "", 0)
	})
	return logOnce.l
}

// LogRequest marshals the entry and writes it as one JSON line.
func LogRequest(entry map[string]any) {
	line, err := json.Marshal(entry)
	if err != nil {
		// The entry contained something unmarshalable; record that instead
		// of dropping the line silently.
		fallback, _ := json.Marshal(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "log marshal failed",
			"err":   err.Error(),
		})
		Logger().Println(string(fallback))
		return
	}
	Logger().Println(string(line))
}
