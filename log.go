package pointsto

import "github.com/sirupsen/logrus"

var log = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}()

// SetLogger replaces the package logger. Solver tracing is emitted at debug
// level; programming errors (malformed nodes, violated editing preconditions)
// go through Panicf.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		log.Panic("nil logger")
	}
	log = l
}
