// Package obs provides the logging facade used throughout the EDMO server.
//
// Debug output includes file names, line numbers, and function names so that
// a log line can be traced back to its call site without an external
// structured-logging dependency. Debugf checks Enabled before producing
// output; Errorf and Panicf always log (errors are never silent, debug
// traces are).
package obs

import (
	"log"
	"path/filepath"
	"runtime"
	"strings"
)

// Enabled controls debug logging and development features throughout the server.
// Set during startup from config.Config.Debug; not modified afterwards.
var Enabled = false

// Debugf logs a debug-level message annotated with the caller's file, line
// and function name. No-op unless Enabled is true.
func Debugf(format string, args ...interface{}) {
	if !Enabled {
		return
	}

	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		log.Printf("DEBUG: "+format+"\n", args...)
		return
	}

	filename := filepath.Base(file)
	funcName := shortFuncName(runtime.FuncForPC(pc).Name())

	log.Printf("[%s:%d %s]: "+format+"\n", append([]interface{}{filename, line, funcName}, args...)...)
}

// Errorf logs an error with file/line info. Unlike Debugf this always logs.
func Errorf(format string, args ...interface{}) {
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		log.Printf("ERROR: "+format+"\n", args...)
		return
	}

	filename := filepath.Base(file)
	funcName := shortFuncName(runtime.FuncForPC(pc).Name())

	log.Printf("ERROR [%s:%d %s]: "+format+"\n", append([]interface{}{filename, line, funcName}, args...)...)
}

// Panicf logs a critical condition. In debug mode it panics; otherwise it
// logs loudly and returns, since a misbehaving robot or player should never
// take down the whole process (§7 — never fatal except UDP bind failure).
func Panicf(format string, args ...interface{}) {
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		log.Printf("CRITICAL: "+format+"\n", args...)
		return
	}

	filename := filepath.Base(file)
	funcName := shortFuncName(runtime.FuncForPC(pc).Name())

	if Enabled {
		log.Panicf("PANIC [%s:%d %s]: "+format, append([]interface{}{filename, line, funcName}, args...)...)
		return
	}
	log.Printf("CRITICAL (would panic in debug mode) [%s:%d %s]: "+format+"\n",
		append([]interface{}{filename, line, funcName}, args...)...)
}

func shortFuncName(fullName string) string {
	if lastSlash := strings.LastIndex(fullName, "/"); lastSlash >= 0 {
		fullName = fullName[lastSlash+1:]
	}
	if lastDot := strings.LastIndex(fullName, "."); lastDot >= 0 {
		return fullName[lastDot+1:]
	}
	return fullName
}
