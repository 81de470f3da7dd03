package log

import (
	"fmt"
	"path"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// callerSkip reaches the logging call site from Format when logrus has not
// recorded the caller itself.
const callerSkip = 8

// formatter renders entries through a pattern with the placeholders
// %time, %level, %field, %msg, %caller, %func, %goroutine and %n.
type formatter struct {
	pattern string
	time    string
}

func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	out := strings.ReplaceAll(f.pattern, "%n", "\n")
	out = strings.Replace(out, "%time", entry.Time.Format(f.time), 1)
	out = strings.Replace(out, "%level", entry.Level.String(), 1)
	out = strings.Replace(out, "%field", buildFields(entry), 1)
	out = strings.Replace(out, "%msg", entry.Message, 1)

	if strings.Contains(out, "%caller") || strings.Contains(out, "%func") {
		site := resolveSite(entry)
		out = strings.Replace(out, "%caller", site.caller(), 1)
		out = strings.Replace(out, "%func", site.funcName(), 1)
	}
	if strings.Contains(out, "%goroutine") {
		out = strings.Replace(out, "%goroutine", goroutineID(), 1)
	}
	return []byte(out), nil
}

// site is the resolved logging call site.
type site struct {
	function string // fully qualified, e.g. firestige.xyz/cobslog/internal/pipeline.(*Pipeline).Run
	file     string
	line     int
	ok       bool
}

func resolveSite(entry *logrus.Entry) site {
	if entry.HasCaller() {
		return site{function: entry.Caller.Function, file: entry.Caller.File, line: entry.Caller.Line, ok: true}
	}
	pc, file, line, ok := runtime.Caller(callerSkip)
	if !ok {
		return site{}
	}
	s := site{file: file, line: line, ok: true}
	if fn := runtime.FuncForPC(pc); fn != nil {
		s.function = fn.Name()
	}
	return s
}

// caller renders pkg/file.go:line.
func (s site) caller() string {
	if !s.ok {
		return "unknown"
	}
	pkg := "unknown"
	if s.function != "" {
		qualified := s.function[:strings.IndexByte(s.function+".", '.')]
		if i := strings.LastIndex(s.function, "/"); i >= 0 {
			qualified = s.function[i+1:]
			qualified = qualified[:strings.IndexByte(qualified+".", '.')]
		}
		pkg = qualified
	}
	return pkg + "/" + path.Base(s.file) + ":" + strconv.Itoa(s.line)
}

// funcName renders the bare function or method name.
func (s site) funcName() string {
	if s.function == "" {
		return "unknown"
	}
	return s.function[strings.LastIndex(s.function, ".")+1:]
}

func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[0]
}

// buildFields renders entry fields as k=v pairs sorted by key, followed by a
// space when there are any.
func buildFields(entry *logrus.Entry) string {
	if len(entry.Data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		if s, ok := entry.Data[k].(string); ok {
			b.WriteString(s)
		} else {
			fmt.Fprint(&b, entry.Data[k])
		}
	}
	b.WriteByte(' ')
	return b.String()
}
