package logging

import (
	"encoding/json"
	"log"
	"time"
)

type Fields struct {
	Service    string `json:"service"`
	Operator   string `json:"operator,omitempty"`
	ActionID   string `json:"action_id,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	Family     string `json:"family,omitempty"`
	Step       string `json:"step,omitempty"`
	Status     string `json:"status,omitempty"`
	HTTPStatus int    `json:"http_status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Logger writes one JSON object per line. A nil *log.Logger means the
// standard logger.
type Logger struct {
	service string
	out     *log.Logger
}

func New(service string, out *log.Logger) *Logger {
	return &Logger{service: service, out: out}
}

func (l *Logger) Log(fields Fields) {
	if l == nil {
		return
	}
	fields.Service = l.service
	fields.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(fields)
	if err != nil {
		l.print("{\"service\":" + quote(l.service) + ",\"status\":\"log_error\"}")
		return
	}
	l.print(string(data))
}

func (l *Logger) print(line string) {
	if l.out != nil {
		l.out.Print(line)
		return
	}
	log.Print(line)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
