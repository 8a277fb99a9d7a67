// Package entry implements the command write-ahead log. Every mutating
// request is framed and appended here before it is applied, so the book
// can be rebuilt by replaying the log after a restart.
package entry

import "time"

type RecordType uint8

const (
	RecordAdd RecordType = iota
	RecordCancel
	RecordReduce
	RecordModify
	RecordReplace
	RecordAddSymbol
	RecordDeleteSymbol
	RecordAddBook
	RecordDeleteBook
)

type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
