package testsupport

import (
	"strconv"
	"sync/atomic"
	"time"
)

// sequence starts from the clock so runs against a shared database do not
// reuse each other's subjects and symbols
var sequence atomic.Uint64

func init() {
	sequence.Store(uint64(time.Now().UnixNano() % 1_000_000))
}

// NextSequence returns a process-wide increasing number
func NextSequence() uint64 {
	return sequence.Add(1)
}

// UniqueName appends the next sequence number to prefix
func UniqueName(prefix string) string {
	return prefix + "_" + strconv.FormatUint(NextSequence(), 10)
}

// UniqueSubject returns a subject id no other test uses
func UniqueSubject() string {
	return UniqueName("subject")
}

// UniqueSymbol returns an instrument symbol like "ES_481203"
func UniqueSymbol(base string) string {
	return UniqueName(base)
}
